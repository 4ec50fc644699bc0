package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sig-0/fxsync/storage/types"
)

// PublishDateLayout is the ICEGATE publish date layout (DD-MM-YYYY)
const PublishDateLayout = "02-01-2006"

var (
	ErrNoDetails      = errors.New("notification has no currency detail")
	ErrErrorMarker    = errors.New("notification payload carries an error")
	ErrMissingDate    = errors.New("notification has no publish date")
	ErrInvalidDate    = errors.New("invalid publish date")
	ErrInvalidPayload = errors.New("invalid notification payload")
)

// rawNotification is the ICEGATE lookup response body
type rawNotification struct {
	Error              json.RawMessage `json:"error"`
	NotPublishDate     string          `json:"notPublishDate"`
	NotificationNumber string          `json:"notificationNumber"`
	CurrencyDetail     []rawDetail     `json:"currencyDetail"`
}

type rawDetail struct {
	CBICExport   number `json:"cbicExport"`
	CBICImport   number `json:"cbicImport"`
	Units        number `json:"units"`
	CurrencyCode string `json:"currencyCode"`
}

// number is a lenient JSON number: it accepts numbers and numeric strings,
// and anything else decodes as absent
type number struct {
	value *float64
}

func (n *number) UnmarshalJSON(b []byte) error {
	n.value = nil

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil //nolint:nilerr // unparsable means absent
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil //nolint:nilerr // unparsable means absent
	}

	n.value = &f

	return nil
}

// Parse decodes a stored notification body. The body must carry a non-empty
// currency detail list and a valid publish date, and no error marker
func Parse(raw []byte) (*types.Notification, error) {
	return parse(raw, true)
}

// ParseLookup decodes a lookup service response. Unlike Parse, an error marker
// alone does not reject it: any response with currency detail is a notification
func ParseLookup(raw []byte) (*types.Notification, error) {
	return parse(raw, false)
}

func parse(raw []byte, checkMarker bool) (*types.Notification, error) {
	var body rawNotification

	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if checkMarker && hasErrorMarker(body.Error) {
		return nil, fmt.Errorf("%w: %s", ErrErrorMarker, string(body.Error))
	}

	if len(body.CurrencyDetail) == 0 {
		return nil, ErrNoDetails
	}

	if strings.TrimSpace(body.NotPublishDate) == "" {
		return nil, ErrMissingDate
	}

	publishDate, err := ParsePublishDate(body.NotPublishDate)
	if err != nil {
		return nil, err
	}

	details := make([]types.CurrencyDetail, 0, len(body.CurrencyDetail))

	for _, d := range body.CurrencyDetail {
		details = append(details, types.CurrencyDetail{
			Code:       types.Currency(strings.ToUpper(strings.TrimSpace(d.CurrencyCode))),
			ExportRate: d.CBICExport.value,
			ImportRate: d.CBICImport.value,
			Units:      d.Units.value,
		})
	}

	return &types.Notification{
		Number:      strings.TrimSpace(body.NotificationNumber),
		PublishDate: publishDate,
		Details:     details,
		Raw:         append(json.RawMessage(nil), raw...),
	}, nil
}

// ParsePublishDate parses a DD-MM-YYYY publish date into UTC midnight
func ParsePublishDate(s string) (time.Time, error) {
	t, err := time.Parse(PublishDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, s, err)
	}

	return t.UTC(), nil
}

// Identifier formats the lookup identifier for the given sequence and year
func Identifier(seq, year int) string {
	return fmt.Sprintf("%02d/%d", seq, year)
}

// sequence extracts the sequence number from a NN/YYYY identifier.
// Malformed identifiers yield -1
func sequence(id string) int {
	head, _, _ := strings.Cut(id, "/")

	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return -1
	}

	return n
}

func hasErrorMarker(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))

	switch v {
	case "", "null", `""`, "false", "0", "{}", "[]":
		return false
	default:
		return true
	}
}
