package router

// #region stopwords
// Stopword lists drive language detection only.
var englishStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true, "not": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"it": true, "this": true, "that": true, "what": true, "which": true,
	"who": true, "how": true, "when": true, "where": true, "why": true,
	"you": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "from": true, "at": true, "by": true,
	"for": true, "in": true, "there": true, "these": true, "those": true,
}

var frenchStopwords = map[string]bool{
	"le": true, "la": true, "les": true, "de": true, "des": true,
	"du": true, "un": true, "une": true, "et": true, "est": true,
	"en": true, "que": true, "qui": true, "dans": true, "pour": true,
	"pas": true, "sur": true, "au": true, "aux": true, "avec": true,
	"ce": true, "cette": true, "ces": true, "il": true, "elle": true,
	"nous": true, "vous": true, "ils": true, "sont": true, "ne": true,
	"se": true, "par": true, "plus": true, "son": true, "sa": true,
	"ses": true, "mais": true, "ou": true, "où": true, "je": true,
	"tu": true, "mon": true, "ma": true, "mes": true, "quand": true,
	"comment": true, "pourquoi": true, "quel": true, "quelle": true, "été": true,
}

// #endregion stopwords

// #region lexicons
// Lexicons are the term lists behind the lexical features. Multi-word terms
// match as whole-token phrases.
type Lexicons struct {
	Risk           []string `yaml:"risk" json:"risk"`
	Forensic       []string `yaml:"forensic" json:"forensic"`
	Classification []string `yaml:"classification" json:"classification"`
	Interrogatives []string `yaml:"interrogatives" json:"interrogatives"`
}

// DefaultLexicons returns the built-in English and French term lists.
func DefaultLexicons() Lexicons {
	return Lexicons{
		Risk: []string{
			"threat", "threats", "threaten", "threatened", "threatening",
			"kill you", "hurt you", "harass", "harassed", "harassment",
			"harassing", "doxx", "doxxing", "doxxed", "stalk", "stalking",
			"stalker", "bully", "bullying", "cyberbullying", "intimidate",
			"intimidation", "blackmail", "sextortion", "hate speech",
			"menace", "menaces", "menacer", "harcèlement", "harceler",
			"harcelé", "harcèle", "intimider", "chantage", "insulte",
			"insultes", "te tuer", "cyberharcèlement",
		},
		Forensic: []string{
			"timeline", "chronology", "forensic", "forensics", "incident",
			"evidence", "log", "logs", "timestamp", "timestamps",
			"sequence of events", "what happened", "audit trail",
			"chronologie", "horodatage", "preuve", "preuves", "journal",
			"journaux", "incident de sécurité", "déroulé",
		},
		Classification: []string{
			"classify", "classification", "categorize", "categorise",
			"which category", "what category", "label this", "tag this",
			"is this spam", "is it spam", "sentiment of",
			"classer", "classifier", "catégoriser", "quelle catégorie",
			"étiqueter",
		},
		Interrogatives: []string{
			"what", "who", "where", "when", "why", "how", "which",
			"is", "are", "can", "could", "does", "do", "did", "should",
			"qui", "quoi", "où", "quand", "pourquoi", "comment", "quel",
			"quelle", "quels", "quelles", "est-ce",
		},
	}
}

// withDefaults fills empty lists from DefaultLexicons.
func (l Lexicons) withDefaults() Lexicons {
	d := DefaultLexicons()
	if len(l.Risk) == 0 {
		l.Risk = d.Risk
	}
	if len(l.Forensic) == 0 {
		l.Forensic = d.Forensic
	}
	if len(l.Classification) == 0 {
		l.Classification = d.Classification
	}
	if len(l.Interrogatives) == 0 {
		l.Interrogatives = d.Interrogatives
	}
	return l
}

// #endregion lexicons
