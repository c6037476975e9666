package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a random UUID used as aggregate identity
func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateEventID returns a k-sortable identifier for outbound events
// ex evt_01HZX3K9Q2YB3T9V6S8M4C1D2E
func GenerateEventID() string {
	return fmt.Sprintf("%s_%s", UUID_PREFIX_EVENT, ulid.Make().String())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateInvoiceNumber returns a short human readable invoice number with a prefix.
// Total length is capped at 14 characters, e.g., `INV-X7K2A9QB1`.
func GenerateInvoiceNumber(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.NewReplacer("-", "", "_", "").Replace(id)

	availableLen := 14 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(prefix + id)
}

const (
	UUID_PREFIX_EVENT = "evt"

	INVOICE_NUMBER_PREFIX_FINAL    = "INV-"
	INVOICE_NUMBER_PREFIX_PROFORMA = "PRO-"
)
