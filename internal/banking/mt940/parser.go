package mt940

// Parse reads a statement file. It never fails: input the grammar rejects is
// handed to the fallback scanner, which at worst returns statements without
// transactions.
func Parse(raw []byte) []Statement {
	statements, _ := ParseDetailed(raw)
	return statements
}

// ParseDetailed is Parse that also returns the grammar error that caused a
// fallback, or nil. The statements are usable either way.
func ParseDetailed(raw []byte) ([]Statement, error) {
	text := Decode(raw)
	statements, strictErr := ParseStrict(text)
	if strictErr != nil {
		statements = ParseFallback(text)
	}
	if statements == nil {
		statements = []Statement{}
	}
	for i := range statements {
		for j := range statements[i].Transactions {
			Enrich(&statements[i].Transactions[j])
		}
	}
	return statements, strictErr
}
