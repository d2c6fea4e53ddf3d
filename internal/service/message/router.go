package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	routeMaxTokens = 500

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var priorityKeywords = []struct {
	priority string
	words    []string
}{
	{PriorityUrgent, []string{"urgent", "emergency", "immediately", "stat", "code blue"}},
	{PriorityHigh, []string{"important", "asap", "deadline", "today", "outage"}},
	{PriorityLow, []string{"fyi", "reminder", "optional", "social", "potluck"}},
}

var errNoRecipients = errors.New("model routed to no known staff member")

type routeReply struct {
	RoutedTo []model.RouteTarget `json:"routed_to"`
	Priority string              `json:"priority"`
	Analysis string              `json:"analysis"`
}

// Route decides which staff members should receive an announcement. The
// model picks recipients from the staff directory; names it invents are
// dropped. When the model is unavailable or its reply cannot be used the
// announcement is routed by keyword.
func (s *Service) Route(ctx context.Context, text string) (*model.MessageRoute, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewBadRequest("Message is required", nil)
	}

	staff, err := s.repo.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	route, err := s.routeWithModel(ctx, text, staff)
	if err != nil {
		log.Warn().Err(err).Msg("message routing fell back to keywords")
		route = routeByKeyword(text, staff)
	}

	ts := now()
	route.ID = fmt.Sprintf("route_%d", ts.UnixMilli())
	route.OriginalMessage = text
	route.Timestamp = ts

	if err := s.repo.SaveRoute(ctx, route); err != nil {
		return nil, apperrors.NewInternal("Failed to save message route", err)
	}
	log.Info().
		Str("route_id", route.ID).
		Str("priority", route.Priority).
		Int("recipients", len(route.RoutedTo)).
		Msg("message routed")
	return route, nil
}

func (s *Service) routeWithModel(ctx context.Context, text string, staff []*model.StaffMember) (*model.MessageRoute, error) {
	directory, err := json.Marshal(staff)
	if err != nil {
		return nil, fmt.Errorf("failed to encode staff directory: %w", err)
	}

	prompt := "You route hospital announcements to the staff who need to act on them. " +
		"Choose recipients ONLY from the staff directory below and explain each choice in one short reason. " +
		"Assign one priority: low, medium, high or urgent. " +
		"Reply with JSON only, shaped as " +
		`{"routed_to":[{"id":"","name":"","role":"","reason":""}],"priority":"","analysis":""}` + ".\n\n" +
		"Staff directory JSON: " + string(directory) + "\n\n" +
		"Announcement: " + text

	reply, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: routeMaxTokens, Temperature: 0})
	if err != nil {
		return nil, err
	}

	var parsed routeReply
	if err := llm.ExtractJSON(reply, &parsed); err != nil {
		return nil, err
	}

	byID := make(map[string]*model.StaffMember, len(staff))
	byName := make(map[string]*model.StaffMember, len(staff))
	for _, m := range staff {
		byID[m.ID] = m
		byName[strings.ToLower(m.Name)] = m
	}

	targets := model.RouteTargets{}
	seen := make(map[string]bool)
	for _, t := range parsed.RoutedTo {
		m, ok := byID[t.ID]
		if !ok {
			m, ok = byName[strings.ToLower(strings.TrimSpace(t.Name))]
		}
		if !ok || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		targets = append(targets, model.RouteTarget{ID: m.ID, Name: m.Name, Role: m.Role, Reason: strings.TrimSpace(t.Reason)})
	}
	if len(targets) == 0 && len(staff) > 0 {
		return nil, errNoRecipients
	}

	return &model.MessageRoute{
		RoutedTo: targets,
		Priority: NormalizePriority(parsed.Priority, text),
		Analysis: strings.TrimSpace(parsed.Analysis),
	}, nil
}

// NormalizePriority maps a model priority onto low, medium, high or urgent,
// inferring one from the announcement when the value is not recognized.
func NormalizePriority(p, text string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium, "normal", "moderate":
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	case PriorityUrgent, "critical", "emergency":
		return PriorityUrgent
	}
	return keywordPriority(text)
}

func keywordPriority(text string) string {
	lower := strings.ToLower(text)
	for _, group := range priorityKeywords {
		for _, w := range group.words {
			if containsWord(lower, w) {
				return group.priority
			}
		}
	}
	return PriorityMedium
}

// routeByKeyword sends the announcement to staff whose role or department is
// mentioned, or to everyone when nobody is.
func routeByKeyword(text string, staff []*model.StaffMember) *model.MessageRoute {
	lower := strings.ToLower(text)
	targets := model.RouteTargets{}
	for _, m := range staff {
		for _, term := range []string{m.Role, m.Department} {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" && strings.Contains(lower, term) {
				targets = append(targets, model.RouteTarget{
					ID: m.ID, Name: m.Name, Role: m.Role,
					Reason: "Announcement mentions " + term,
				})
				break
			}
		}
	}

	analysis := "Routed by matching roles and departments named in the announcement."
	if len(targets) == 0 {
		for _, m := range staff {
			targets = append(targets, model.RouteTarget{ID: m.ID, Name: m.Name, Role: m.Role, Reason: "General announcement"})
		}
		analysis = "No role or department was named, so the announcement goes to all staff."
	}
	return &model.MessageRoute{RoutedTo: targets, Priority: keywordPriority(text), Analysis: analysis}
}

// containsWord matches w at word boundaries so "stat" does not match "status".
func containsWord(s, w string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(w)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
