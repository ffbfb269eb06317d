package dosage

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/eps/gateway/internal/platform/fhir"
)

// ErrIncompleteSequencing reports multiple dosage instructions where at
// least one lacks a sequence number, making their ordering undefined.
var ErrIncompleteSequencing = errors.New("dosage instructions lacking complete sequencing")

// Combine joins the texts of multiple dosage instructions into one
// sentence. Instructions sharing a sequence number run concurrently and
// join with ", and "; consecutive sequence groups join with ", then ".
func Combine(instructions []fhir.Dosage) (string, error) {
	if len(instructions) == 0 {
		return "", nil
	}
	if len(instructions) == 1 {
		return instructions[0].Text, nil
	}

	groups := make(map[int][]string)
	var sequences []int
	for _, instruction := range instructions {
		if instruction.Sequence == "" {
			return "", ErrIncompleteSequencing
		}
		sequence, err := strconv.Atoi(instruction.Sequence.String())
		if err != nil {
			return "", ErrIncompleteSequencing
		}
		if _, seen := groups[sequence]; !seen {
			sequences = append(sequences, sequence)
		}
		groups[sequence] = append(groups[sequence], instruction.Text)
	}
	sort.Ints(sequences)

	var consecutive []string
	for _, sequence := range sequences {
		consecutive = append(consecutive, strings.Join(groups[sequence], ", and "))
	}
	return strings.Join(consecutive, ", then "), nil
}
