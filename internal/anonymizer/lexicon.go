package anonymizer

// Lexicon holds the static name databases used by the lexicon and
// capitalization signals. The sets are lowercase; lookups must lowercase
// the token first.
type Lexicon struct {
	FirstNames    map[string]struct{}
	LastNames     map[string]struct{}
	RegionalNames map[string]struct{}
}

// DefaultLexicon returns the built-in name databases: French first and last
// names plus an extended Arabic/Maghrebi/Berber set including particles.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		FirstNames:    toSet(frenchFirstNames),
		LastNames:     toSet(frenchLastNames),
		RegionalNames: toSet(arabicNames),
	}
}

// ContainsWord reports whether the lowercase form of word appears in any of
// the name sets.
func (l *Lexicon) ContainsWord(word string) bool {
	if _, ok := l.FirstNames[word]; ok {
		return true
	}
	if _, ok := l.LastNames[word]; ok {
		return true
	}
	_, ok := l.RegionalNames[word]
	return ok
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var frenchFirstNames = []string{
	// Classic first names
	"marie", "jean", "pierre", "paul", "jacques", "michel", "andre", "philippe",
	"anne", "sophie", "claire", "emma", "julie", "sarah", "lucas", "thomas",
	"nicolas", "antoine", "camille", "chloe", "lea", "manon", "oceane", "ambre",
	"louis", "gabriel", "raphael", "arthur", "hugo", "mathis", "noah", "adam",
	// Modern first names
	"enzo", "theo", "liam", "nathan", "maxime", "ethan", "timothe", "tom",
	"lola", "jade", "louise", "alice", "celia", "rose", "anna", "lina",
	// Compound first names
	"jean-luc", "marie-claire", "anne-sophie", "jean-pierre", "marie-france",
	// Accented variants
	"élise", "andré", "cécile", "rené", "agnès", "hélène", "jérôme", "françois",
}

var frenchLastNames = []string{
	"martin", "bernard", "durand", "petit", "robert", "richard", "moreau",
	"simon", "laurent", "lefebvre", "michel", "garcia", "david", "bertrand",
	"roussel", "vincent", "fournier", "morel", "girard", "andre", "lefevre",
	"mercier", "dupont", "lambert", "bonnet", "francois", "martinez", "legrand",
	// Compound names and particles
	"de-la-fontaine", "du-moulin", "le-roy", "saint-martin", "van-den-berg",
	// Accented names
	"françois", "müller", "josé", "garcía", "gonzález",
}

var arabicNames = []string{
	// Masculine first names
	"mohamed", "mohammed", "muhammad", "ahmad", "ahmed", "omar", "umar", "ali",
	"hassan", "hussein", "youssef", "yousef", "joseph", "ibrahim", "ismail",
	"khalid", "karim", "tarek", "tariq", "samir", "amin", "nasser", "said",
	"mahmoud", "mustafa", "abdullah", "abderrahman", "abdelkader", "abdelaziz",
	// Feminine first names
	"fatima", "aisha", "khadija", "zahra", "amina", "safaa", "nadia", "leila",
	"sofia", "maryam", "salma", "hanan", "yasmin", "dalal", "wafa", "nour",
	// Maghrebi family names
	"benali", "ben-ali", "benameur", "mansouri", "el-mansouri", "al-mansouri",
	"khaldoun", "ibn-khaldoun", "benaissa", "bouazza", "meziane", "ouali",
	"zerhouni", "tlemcani", "fassi", "alaoui", "idrissi", "hassani",
	// Berber/Amazigh names
	"tamazight", "amellal", "azul", "tanirt", "tilelli", "yemma", "gouraya",
	"akli", "mohand", "amazigh", "kabyle",
	// Particles and honorifics
	"sidi", "moulay", "lalla", "sid", "abu", "abou", "ould", "ben", "ibn", "bint",
}

// internationalNamePatterns maps a linguistic origin tag to regexes matching
// surname morphology and particles typical of that origin. Matched tags are
// reported as detection reasons.
var internationalNamePatterns = map[string][]string{
	"arabic":           {`(?:mohamed|ahmed|omar|hassan|ali|fatima|aisha)|(?:al|el)-|\b(?:ben|ibn|ould|bint|sidi|moulay)\b`},
	"asian":            {`(?:chen|wang|li|zhang|kim|park|tanaka|sato)(?:$|[a-z])`},
	"african":          {`(?:kone|traore|diallo|barry|camara|diouf)`},
	"eastern_european": {`(?:ovski|ovsky|enko|ić|escu)`},
	"hispanic":         {`(?:rodriguez|gonzalez|lopez|martinez|garcia)`},
}

// Column name keywords used by the profiler's hint score.
var obviousColumnKeywords = []string{
	"nom", "name", "prenom", "firstname", "lastname", "surname",
	"client", "customer", "user", "person", "people", "individu",
}

var possibleColumnKeywords = []string{
	"titre", "title", "responsable", "manager", "contact",
	"signataire", "beneficiaire", "proprietaire",
}
