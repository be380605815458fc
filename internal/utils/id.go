package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateOrderID returns a short, human-quotable order id.
func GenerateOrderID() string {
	return fmt.Sprintf("ORD-%s", strings.ToUpper(uuid.New().String()[:8]))
}
