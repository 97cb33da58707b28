package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// NextRequestNumber returns the next number in the request type's prefix family.
// It takes the highest existing suffix and adds one; gaps are not filled and
// numbers from other families or with a non-numeric suffix are ignored.
func NextRequestNumber(requestType workflow.RequestType, existing []string) (string, error) {
	prefix := requestType.NumberPrefix()
	if prefix == "" {
		return "", fmt.Errorf("%w: no number prefix for request type %q", workflow.ErrValidation, requestType)
	}

	highest := 0
	for _, number := range existing {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		seq, err := strconv.Atoi(number[len(prefix):])
		if err != nil || seq < 0 {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}

	return prefix + strconv.Itoa(highest+1), nil
}
