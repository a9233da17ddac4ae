package anonymizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// firstNames are common given names in Honduras and the wider region.
// Entries are stored accent-folded.
var firstNames = []string{
	"adriana", "alberto", "alejandra", "alejandro", "alex", "alfredo", "alicia",
	"ana", "andrea", "andres", "angel", "angela", "antonio", "arturo", "beatriz",
	"camila", "carla", "carlos", "carmen", "carolina", "cesar", "claudia",
	"cristian", "daniel", "daniela", "david", "diana", "diego", "dolores",
	"eduardo", "elena", "elizabeth", "emilio", "enrique", "erick", "esteban",
	"fernando", "francisco", "gabriel", "gabriela", "gerardo", "gloria",
	"gustavo", "hector", "hugo", "ignacio", "isabel", "jaime", "javier",
	"jennifer", "jesus", "jorge", "jose", "josefa", "juan", "julia", "julio",
	"karla", "laura", "leonardo", "lorena", "lucia", "luis", "manuel",
	"marco", "marcos", "margarita", "maria", "mariana", "mario", "marta",
	"martha", "miguel", "monica", "nelson", "norma", "oscar", "pablo",
	"patricia", "paola", "pedro", "rafael", "ramon", "raul", "ricardo",
	"roberto", "rosa", "ruth", "samuel", "sandra", "santiago", "sara", "sergio",
	"silvia", "sofia", "susana", "teresa", "valeria", "veronica", "victor",
	"wilmer", "yolanda",
}

// geographicWords are places and the words that build place names. They are
// excluded from person detection and back the optional location pass.
var geographicWords = []string{
	"honduras", "guatemala", "nicaragua", "costa", "rica", "panama",
	"mexico", "belice", "colombia", "espana", "estados", "unidos", "canada",
	"tegucigalpa", "comayagua", "comayaguela", "ceiba", "choluteca", "danli",
	"juticalpa", "olancho", "roatan", "siguatepeque", "tela", "copan",
	"yoro", "intibuca", "lempira", "ocotepeque", "atlantida", "cortes",
	"santa", "san", "sula", "puerto", "nueva", "york", "miami",
}

// functionalWords are capitalized words that show up in ordinary prose and
// institution names but are never part of a person's name.
var functionalWords = []string{
	"la", "el", "los", "las", "de", "del", "y", "en",
	"banco", "universidad", "hospital", "instituto", "ministerio", "gobierno",
	"republica", "nacional", "central", "centro", "escuela", "colegio",
	"iglesia", "parque", "museo", "aeropuerto", "mercado", "avenida", "calle",
	"colonia", "barrio", "boulevard", "bulevar", "residencial", "departamento",
	"municipio", "ciudad", "norte", "sur", "este", "oeste",
	"lunes", "martes", "miercoles", "jueves", "viernes", "sabado", "domingo",
	"enero", "febrero", "marzo", "abril", "mayo", "junio", "agosto",
	"septiembre", "octubre", "noviembre", "diciembre",
	"navidad", "semana", "feliz",
}

// locationPhrases feed the location matcher. Longer phrases come first so
// the alternation prefers them.
var locationPhrases = []string{
	"san pedro sula", "santa rosa de copan", "puerto cortes", "la ceiba",
	"estados unidos", "costa rica", "el salvador", "nueva york", "los angeles",
	"tegucigalpa", "comayaguela", "comayagua", "choluteca", "danli",
	"juticalpa", "olancho", "roatan", "siguatepeque", "trujillo", "yoro",
	"intibuca", "lempira", "ocotepeque", "atlantida",
	"honduras", "guatemala", "nicaragua", "panama", "mexico", "belice",
	"colombia", "espana", "canada", "miami",
}

// lexicon is a read-only set of accent-folded lowercase words
type lexicon map[string]struct{}

func newLexicon(groups ...[]string) lexicon {
	lex := make(lexicon)
	for _, words := range groups {
		for _, w := range words {
			w = strings.TrimSpace(strings.ToLower(w))
			if w == "" {
				continue
			}
			lex[fold(w)] = struct{}{}
		}
	}
	return lex
}

// contains checks the lowercase word and its accent-folded form
func (l lexicon) contains(word string) bool {
	if _, ok := l[word]; ok {
		return true
	}
	_, ok := l[fold(word)]
	return ok
}

// fold strips combining marks so "pérez" and "perez" compare equal.
// A new transformer is built per call because transform.Transformer values
// carry state.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
