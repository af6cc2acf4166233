package billing

import (
	"fmt"
	"strconv"
)

const (
	metaProfileID = "creator_profile_id"
	metaName      = "name"
	metaMessage   = "message"
	metaIsPrivate = "is_private"
)

// TipMetadata travels with a checkout session and comes back on the
// completion event.
type TipMetadata struct {
	ProfileID uint
	Name      *string
	Message   *string
	IsPrivate bool
}

// Encode flattens the metadata into processor string metadata. Unset or
// empty name and message are omitted.
func (m TipMetadata) Encode() map[string]string {
	out := map[string]string{
		metaProfileID: strconv.FormatUint(uint64(m.ProfileID), 10),
		metaIsPrivate: strconv.FormatBool(m.IsPrivate),
	}
	if m.Name != nil && *m.Name != "" {
		out[metaName] = *m.Name
	}
	if m.Message != nil && *m.Message != "" {
		out[metaMessage] = *m.Message
	}
	return out
}

// DecodeTipMetadata parses metadata produced by Encode.
func DecodeTipMetadata(raw map[string]string) (TipMetadata, error) {
	var m TipMetadata

	idRaw, ok := raw[metaProfileID]
	if !ok {
		return m, fmt.Errorf("metadata is missing %s", metaProfileID)
	}
	id, err := strconv.ParseUint(idRaw, 10, 64)
	if err != nil || id == 0 {
		return m, fmt.Errorf("invalid %s %q", metaProfileID, idRaw)
	}
	m.ProfileID = uint(id)

	if v, ok := raw[metaName]; ok && v != "" {
		m.Name = &v
	}
	if v, ok := raw[metaMessage]; ok && v != "" {
		m.Message = &v
	}
	if v, ok := raw[metaIsPrivate]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return m, fmt.Errorf("invalid %s %q", metaIsPrivate, v)
		}
		m.IsPrivate = b
	}
	return m, nil
}
