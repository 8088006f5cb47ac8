package keywords

// defaultStopwords covers English function words and the boilerplate that
// surrounds eligibility criteria.
var defaultStopwords = []string{ //nolint:gochecknoglobals // read-only word list
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as", "at",
	"be", "been", "before", "being", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "during", "each", "either",
	"for", "from", "had", "has", "have", "he", "her", "his",
	"if", "in", "into", "is", "it", "its", "least", "less", "may", "more", "most", "must",
	"no", "nor", "not", "of", "on", "or", "other", "others", "our", "over",
	"per", "prior", "she", "should", "such", "than", "that", "the", "their", "them",
	"then", "there", "these", "they", "this", "those", "to", "under", "up", "upon",
	"was", "were", "what", "when", "where", "which", "while", "who", "will", "with",
	"within", "without", "would",
	"criteria", "eligibility", "exclusion", "inclusion", "participant", "participants",
	"patient", "patients", "subject", "subjects", "study", "trial",
	"year", "years", "old", "older", "age", "aged",
}
