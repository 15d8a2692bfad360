package cursorstore

import (
	"encoding/json"

	"github.com/joshuavictorchen/claodex/internal/domain"
)

func parseParticipant(data []byte) (domain.Participant, error) {
	var p domain.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// WriteParticipant writes a participant record atomically. Used by the
// registration CLI command (supplemental, §C of SPEC_FULL.md); the
// core router only ever reads these files.
func (s *Store) WriteParticipant(agent domain.Agent, p domain.Participant) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.participantPath(agent), data)
}
