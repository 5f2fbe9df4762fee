package hgvs

// residueThree maps the 20 standard single-letter amino acid codes to their
// three-letter codes.
var residueThree = map[byte]string{
	'A': "Ala", 'C': "Cys", 'D': "Asp", 'E': "Glu",
	'F': "Phe", 'G': "Gly", 'H': "His", 'I': "Ile",
	'K': "Lys", 'L': "Leu", 'M': "Met", 'N': "Asn",
	'P': "Pro", 'Q': "Gln", 'R': "Arg", 'S': "Ser",
	'T': "Thr", 'V': "Val", 'W': "Trp", 'Y': "Tyr",
}

// whoStop is the stop codon marker used by the WHO catalogue in place of '*'.
const whoStop = '!'

// ResidueThree returns the three-letter code for a single-letter residue.
// The WHO stop marker '!' maps to "*".
func ResidueThree(aa byte) (string, bool) {
	if aa == whoStop {
		return "*", true
	}
	three, ok := residueThree[aa]
	return three, ok
}
