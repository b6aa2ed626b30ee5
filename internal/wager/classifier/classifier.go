// Package classifier extrai de uma mensagem de morte qual combatente morreu.
package classifier

import (
	"regexp"
	"strings"
)

var (
	// códigos de cor/estilo: '§' seguido de um caractere de formatação
	formatCodes = regexp.MustCompile(`(?i)§[0-9a-fk-or]`)
	// "<nome> was slain", "<nome> fell from a high place", ...
	deathVerb = regexp.MustCompile(`(?i)([A-Za-z0-9_]{3,16}) (?:was|is|died|fell|blew|slain|killed|went)`)
)

// Normalize remove os códigos de formatação e coloca o texto em minúsculas
func Normalize(text string) string {
	return strings.ToLower(formatCodes.ReplaceAllString(text, ""))
}

// Classify retorna o nome do combatente morto; ok=false quando nada casa
// Ordem: nome do lado A no texto, nome do lado B, depois o padrão "<nome> <verbo>"
// O padrão pode devolver um nome que não é nenhum dos lados; use Resolve para liquidar
func Classify(text, sideA, sideB string) (string, bool) {
	if text == "" {
		return "", false
	}

	normalized := Normalize(text)
	if sideA != "" && strings.Contains(normalized, strings.ToLower(sideA)) {
		return sideA, true
	}
	if sideB != "" && strings.Contains(normalized, strings.ToLower(sideB)) {
		return sideB, true
	}

	if m := deathVerb.FindStringSubmatch(text); m != nil && m[1] != "" {
		return m[1], true
	}
	return "", false
}

// Resolve classifica e só aceita resultado que seja um dos dois lados,
// devolvendo a grafia cadastrada; qualquer outro nome falha fechado
func Resolve(text, sideA, sideB string) (string, bool) {
	dead, ok := Classify(text, sideA, sideB)
	if !ok {
		return "", false
	}
	switch {
	case sideA != "" && strings.EqualFold(dead, sideA):
		return sideA, true
	case sideB != "" && strings.EqualFold(dead, sideB):
		return sideB, true
	}
	return "", false
}
