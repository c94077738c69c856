package patterns

// =============================================================================
// BUILT-IN RULE SET BY CATEGORY
// The default rule source, compiled into the binary. Rules assume normalized
// input: lower-cased, whitespace-collapsed, punctuation cues (! ? @ #) kept.
// =============================================================================

// BuiltinSource supplies the compiled-in rule set.
type BuiltinSource struct{}

func (BuiltinSource) Rules() ([]RuleSpec, error) {
	b := &builder{}
	b.registerUrgencyRules()
	b.registerAuthorityRules()
	b.registerImpersonationRules()
	b.registerRewardLureRules()
	b.registerFearThreatRules()
	return b.rules, nil
}

type builder struct {
	rules []RuleSpec
}

func (b *builder) regex(id string, cat Category, sub, pattern string, weight float64, desc string) {
	b.rules = append(b.rules, RuleSpec{
		ID: id, Category: string(cat), Subcategory: sub, Weight: weight,
		Description: desc, Match: MatchDecl{Regex: pattern},
	})
}

func (b *builder) phrases(id string, cat Category, sub string, weight float64, desc string, phrases ...string) {
	b.rules = append(b.rules, RuleSpec{
		ID: id, Category: string(cat), Subcategory: sub, Weight: weight,
		Description: desc, Match: MatchDecl{Phrases: phrases},
	})
}

func (b *builder) proximity(id string, cat Category, sub string, weight float64, desc string, window int, tokens ...string) {
	b.rules = append(b.rules, RuleSpec{
		ID: id, Category: string(cat), Subcategory: sub, Weight: weight,
		Description: desc, Match: MatchDecl{Proximity: &ProximityDecl{Tokens: tokens, Window: window}},
	})
}

// --- URGENCY RULES ---
func (b *builder) registerUrgencyRules() {
	cat := CategoryUrgency

	// Deadlines and countdowns
	b.regex("urg-deadline-countdown", cat, "deadline",
		`\b(?:expires?|expiring)\s+(?:in\s+)?\d+\s*(?:hours?|minutes?|days?|hrs?|mins?)\b`,
		0.25, "Expiry countdown")
	b.regex("urg-deadline-window", cat, "deadline",
		`\b(?:within|in)\s+(?:the\s+)?(?:next\s+)?\d+\s*(?:hours?|minutes?|days?)\b`,
		0.25, "Numeric time window")
	b.regex("urg-deadline-named", cat, "deadline",
		`\b(?:deadline\s+(?:is\s+)?|by\s+|before\s+)(?:end\s+of\s+)?(?:today|tomorrow|tonight|business\s+day)\b`,
		0.25, "Named same-day deadline")
	b.regex("urg-final-notice", cat, "deadline",
		`\b(?:last|final)\s+(?:chance|warning|notice|reminder|opportunity|day)\b`,
		0.3, "Final notice framing")

	// Immediacy demands
	b.regex("urg-act-now", cat, "immediacy",
		`\b(?:act|respond|reply|call|click|verify|confirm|update)\s+(?:now|immediately|right\s+away|asap|today)\b`,
		0.3, "Imperative with immediacy")
	b.regex("urg-immediate-action", cat, "immediacy",
		`\bimmediate\s+(?:action|attention|response)\b`,
		0.3, "Immediate action demand")
	b.regex("urg-immediately", cat, "immediacy",
		`\bimmediately\b`,
		0.15, "Bare immediacy adverb")
	b.regex("urg-no-delay", cat, "immediacy",
		`\b(?:don'?t|do\s+not)\s+(?:wait|delay|hesitate)\b|\bwithout\s+delay\b`,
		0.2, "Anti-hesitation pressure")
	b.phrases("urg-running-out", cat, "immediacy",
		0.2, "Time exhaustion idiom",
		"time is running out", "clock is ticking", "before it's too late", "right away")

	// Scarcity and time pressure
	b.regex("urg-limited-time", cat, "time_pressure",
		`\blimited[\s-]?time\b|\bwhile\s+(?:supplies|stocks?|seats?|spots?)\s+last\b|\b(?:today|now)\s+only\b`,
		0.2, "Limited-time scarcity")
	b.regex("urg-few-left", cat, "time_pressure",
		`\b(?:only|just)\s+\d+\s*(?:left|remaining|available)\b`,
		0.2, "Remaining-count scarcity")

	// Contextual urgency keywords and punctuation emphasis
	b.regex("urg-keyword", cat, "keywords",
		`\burgent\b|\bemergency\b|\basap\b|\b(?:action|attention)\s+required\b`,
		0.2, "Urgency keyword")
	b.regex("urg-exclaim", cat, "emphasis",
		`!{2,}`,
		0.1, "Repeated exclamation emphasis")
}

// --- AUTHORITY RULES ---
func (b *builder) registerAuthorityRules() {
	cat := CategoryAuthority

	// Claimed titles and positions
	b.regex("auth-exec-title", cat, "title",
		`\b(?:ceo|cfo|cto|cio|coo|ciso)\b|\bchief\s+(?:executive|financial|technology|information|operating|security)\s+officer\b`,
		0.3, "Executive title claim")
	b.regex("auth-mgmt-title", cat, "title",
		`\b(?:president|vice\s+president|director|supervisor)\b|\bhead\s+of\s+\w+\b|\byour\s+manager\b`,
		0.2, "Management title claim")

	// Claimed departments and institutions
	b.regex("auth-department", cat, "department",
		`\bhuman\s+resources\b|\bit\s+(?:department|support)\b|\b(?:tech\s+support|helpdesk)\b|\b(?:legal|compliance|security|finance|accounting)\s+(?:department|team|office)\b`,
		0.2, "Internal department claim")
	b.regex("auth-agency", cat, "organization",
		`\b(?:irs|fbi|dhs)\b|\blaw\s+enforcement\b|\bfederal\s+(?:agency|government|bureau)\b`,
		0.3, "Government agency claim")
	b.regex("auth-vendor", cat, "organization",
		`\b(?:microsoft|google|apple|amazon|paypal)\s+(?:support|security|team)\b`,
		0.25, "Vendor security team claim")

	// Directive and compliance language
	b.regex("auth-directive", cat, "directive",
		`\byou\s+(?:must|are\s+required\s+to)\b|\bmust\s+comply\b|\brequired\s+by\s+(?:law|policy|regulation)\b|\bmandatory\b|\b(?:instructed|directed|authorized)\s+(?:to|by)\b`,
		0.3, "Compliance directive")
	b.regex("auth-invoked-order", cat, "directive",
		`\b(?:per|as\s+per|under)\s+(?:the\s+)?(?:\w+\s+)?(?:directive|order|instruction)s?\b|\bon\s+behalf\s+of\b`,
		0.3, "Invoked order or mandate")
	b.phrases("auth-confidential", cat, "directive",
		0.2, "Secrecy instruction",
		"keep this confidential", "do not share this", "this is confidential", "between us")
	b.proximity("auth-wire-transfer", cat, "directive",
		0.25, "Funds transfer instruction", 6,
		"transfer", "funds")
}

// --- IMPERSONATION RULES ---
func (b *builder) registerImpersonationRules() {
	cat := CategoryImpersonation

	b.regex("imp-direct-identity", cat, "identity_claim",
		`\bthis\s+is\s+(?:\w+\s+)?(?:support|security|service)\b|\bi\s+am\s+(?:a\s+|an\s+|your\s+)?(?:\w+\s+)?(?:manager|admin|support|agent|representative|officer|staff)\b`,
		0.3, "Direct identity assertion")
	b.regex("imp-from-org", cat, "identity_claim",
		`\bi\s+(?:work\s+for|am\s+from|am\s+with)\b|\b(?:calling|writing)\s+(?:from|on\s+behalf\s+of)\b`,
		0.25, "First-person affiliation claim")
	b.regex("imp-role-claim", cat, "role_claim",
		`\b(?:acting\s+)?as\s+your\s+(?:manager|supervisor|admin|support|agent|representative)\b|\byour\s+(?:it\s+)?(?:administrator|account\s+manager)\b`,
		0.25, "Role or position claim")
	b.regex("imp-org-rep", cat, "org_claim",
		`\b(?:representing|with)\s+(?:the\s+)?(?:company|organization|bank|service|department|team)\b`,
		0.2, "Organization representation claim")
	b.regex("imp-named", cat, "named_individual",
		`\b(?:i'?m|i\s+am)\s+\w+\s+(?:from|with)\b|\bcall\s+me\s+\w+\b`,
		0.2, "Named individual claim")
}

// --- REWARD / LURE RULES ---
func (b *builder) registerRewardLureRules() {
	cat := CategoryRewardLure

	b.regex("lure-prize", cat, "prize",
		`\byou'?v?e?\s+(?:won|been\s+selected|been\s+chosen)\b|\b(?:winner|lottery|sweepstakes|jackpot)\b`,
		0.3, "Prize or winner announcement")
	b.regex("lure-claim", cat, "prize",
		`\bclaim\s+(?:your|the)\s+(?:prize|reward|winnings|money|gift|refund)\b`,
		0.3, "Claim-your-prize instruction")
	b.regex("lure-refund", cat, "refund",
		`\b(?:pending|unclaimed)\s+(?:refund|cashback|reward)\b|\btax\s+refund\b`,
		0.25, "Unclaimed money lure")
	b.regex("lure-free", cat, "free_offer",
		`\bfree\s+(?:iphone|gift|vacation|money|prize|upgrade)\b|\bno\s+(?:cost|charge|repayment)\b`,
		0.2, "Free goods offer")
	b.phrases("lure-giftcard", cat, "free_offer",
		0.2, "Gift card or credit bait",
		"gift card", "store credit", "bonus points", "voucher", "cash prize")
	b.regex("lure-exclusive", cat, "selection",
		`\bexclusive\s+(?:offer|deal|access)\b|\bspecial(?:ly)?\s+select(?:ed|ion)\b|\brandomly\s+selected\b`,
		0.2, "Exclusive selection framing")
}

// --- FEAR / THREAT RULES ---
func (b *builder) registerFearThreatRules() {
	cat := CategoryFearThreat

	b.regex("fear-compromise", cat, "account_compromise",
		`\baccount\s+(?:has\s+been\s+|was\s+)?(?:compromised|hacked|breached)\b|\bunauthorized\s+(?:access|activity|login)\b|\bsuspicious\s+(?:activity|login|access)\b|\bsecurity\s+breach\b`,
		0.3, "Account compromise claim")
	b.regex("fear-legal", cat, "legal",
		`\blegal\s+action\b|\blawsuit\b|\bprosecution\b|\bcriminal\s+(?:charges|liability|action)\b|\barrest\s+warrant\b`,
		0.35, "Legal or enforcement threat")
	// Loss of access is only a threat when framed as a consequence; a plain
	// status notice ("account will be suspended in 2 hours") reads as
	// urgency, not fear.
	b.regex("fear-access-loss", cat, "access_loss",
		`\b(?:or|otherwise|unless)\b[^.!?]*\b(?:suspended|terminated|closed|disabled|deleted|locked)\b|\blose\s+(?:access|your\s+account)\b|\bbanned?\s+from\b`,
		0.3, "Conditional loss-of-access threat")
	b.regex("fear-compliance", cat, "compliance",
		`\bfail(?:ure)?\s+to\s+(?:comply|respond|verify|confirm|act)\b|\bwill\s+result\s+in\b|\bnon-?compliance\b`,
		0.25, "Non-compliance consequence")
	b.proximity("fear-permanent-loss", cat, "access_loss",
		0.25, "Permanent account loss threat", 8,
		"account", "permanently")
}
