package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// contentKeyPrefix marks keys derived from row content rather than an ID cell.
const contentKeyPrefix = "h:"

// RowKey identifies a ledger row independently of its position.
type RowKey string

// Locator points at one row of one ledger. Position is the zero-based data
// row index observed when the row was read; Key is what writers resolve
// against, so a re-sorted ledger still updates the intended row.
type Locator struct {
	Ledger   string
	Position int
	Key      RowKey
}

// ContentKey derives a key from the row's name and email plus the number
// of earlier rows in the same ledger sharing that pair.
func ContentKey(name, email string, occurrence int) RowKey {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%s\x1f%d",
		strings.ToLower(strings.TrimSpace(name)),
		strings.ToLower(strings.TrimSpace(email)),
		occurrence)
	return RowKey(contentKeyPrefix + hex.EncodeToString(h.Sum(nil))[:16])
}

// IsContentKey reports whether k was derived from row content.
func (k RowKey) IsContentKey() bool {
	return strings.HasPrefix(string(k), contentKeyPrefix)
}

func (k RowKey) String() string {
	return string(k)
}

func (l Locator) String() string {
	if l.Key == "" {
		return fmt.Sprintf("%s#%d", l.Ledger, l.Position)
	}
	return fmt.Sprintf("%s#%d(%s)", l.Ledger, l.Position, l.Key)
}
