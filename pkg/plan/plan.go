// Package plan loads conversation plans produced by the external planning
// collaborator.
package plan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gonzobot/gonzo/pkg/interrogate"
)

// File is the on-disk shape the planning collaborator hands over. YAML or
// JSON; yaml.v3 parses both.
type File struct {
	Plans []interrogate.ConversationPlan `yaml:"plans" json:"plans"`
}

// Load reads and validates a plan file.
func Load(path string) ([]interrogate.ConversationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes plan bytes and validates every plan. Plans without an ID get
// one derived from their position; everything else missing is an error, since
// a plan with no questions can never produce a usable transcript.
func Parse(data []byte) ([]interrogate.ConversationPlan, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil || len(file.Plans) == 0 {
		// Also accept a bare top-level list.
		if listErr := yaml.Unmarshal(data, &file.Plans); listErr != nil {
			if err != nil {
				return nil, fmt.Errorf("parse plan file: %w", err)
			}
			return nil, fmt.Errorf("parse plan file: %w", listErr)
		}
		if len(file.Plans) == 0 {
			return nil, fmt.Errorf("plan file contains no plans")
		}
	}
	for i := range file.Plans {
		p := &file.Plans[i]
		if strings.TrimSpace(p.ID) == "" {
			p.ID = fmt.Sprintf("conv_%03d", i+1)
		}
		if strings.TrimSpace(p.Topic) == "" {
			return nil, fmt.Errorf("plan %s: topic is required", p.ID)
		}
		if strings.TrimSpace(p.OpeningQuestion) == "" {
			return nil, fmt.Errorf("plan %s: opening_question is required", p.ID)
		}
		for j, q := range p.FollowUpQuestions {
			if strings.TrimSpace(q) == "" {
				return nil, fmt.Errorf("plan %s: follow-up %d is empty", p.ID, j+1)
			}
		}
	}
	return file.Plans, nil
}
