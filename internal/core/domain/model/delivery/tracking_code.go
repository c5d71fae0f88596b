package delivery

import (
	"fmt"
	"regexp"

	"lastmile/internal/pkg/errs"

	"github.com/google/uuid"
)

const (
	trackingCodePrefix   = "TRK-"
	trackingCodeLength   = 10
	trackingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var trackingCodePattern = regexp.MustCompile(`^TRK-[A-Z0-9]{10}$`)

// TrackingCode is the human-facing identifier printed on labels and shared with customers.
type TrackingCode string

// NewTrackingCode draws a random code such as "TRK-7KQ2MZX4PA".
// The alphabet omits I, O, 0 and 1 to avoid misreads.
func NewTrackingCode() TrackingCode {
	raw := uuid.New()
	code := make([]byte, trackingCodeLength)
	for i := range code {
		code[i] = trackingCodeAlphabet[int(raw[i])%len(trackingCodeAlphabet)]
	}
	return TrackingCode(trackingCodePrefix + string(code))
}

// ParseTrackingCode accepts codes in the "TRK-" + 10 uppercase alphanumerics form.
func ParseTrackingCode(s string) (TrackingCode, error) {
	if !trackingCodePattern.MatchString(s) {
		return "", errs.NewValueIsInvalidErrorWithCause(
			"tracking code", fmt.Errorf("%q does not match %s", s, trackingCodePattern))
	}
	return TrackingCode(s), nil
}

func (c TrackingCode) String() string {
	return string(c)
}

// Validate checks the stored form.
func (c TrackingCode) Validate() error {
	_, err := ParseTrackingCode(string(c))
	return err
}
