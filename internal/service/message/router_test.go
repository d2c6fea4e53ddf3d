package message

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
)

var directory = []*model.StaffMember{
	{ID: "s1", Name: "Dana Ruiz", Role: "Respiratory Therapist", Department: "Pulmonology"},
	{ID: "s2", Name: "Omar Haddad", Role: "Charge Nurse", Department: "ICU"},
	{ID: "s3", Name: "Lena Park", Role: "Pharmacist", Department: "Pharmacy"},
}

func TestRoute_UsesModelAndDropsUnknownStaff(t *testing.T) {
	svc, repo, client := newService(t)
	ctx := context.Background()
	repo.On("ListStaff", ctx).Return(directory, nil)
	client.On("Complete", ctx, mock.Anything).Return("```json\n"+`{
		"routed_to": [
			{"id": "s1", "name": "Dana Ruiz", "reason": "Ventilator settings change"},
			{"id": "x9", "name": "Ghost", "reason": "made up"},
			{"id": "", "name": "omar haddad", "reason": "ICU staffing"},
			{"id": "s1", "name": "Dana Ruiz", "reason": "duplicate"}
		],
		"priority": "Critical",
		"analysis": "Ventilator protocol update affects ICU respiratory care."
	}`+"\n```", nil)

	var saved *model.MessageRoute
	repo.On("SaveRoute", ctx, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.MessageRoute)
	}).Return(nil)

	got, err := svc.Route(ctx, "New ventilator weaning protocol starts Monday.")
	require.NoError(t, err)
	require.Len(t, got.RoutedTo, 2)
	assert.Equal(t, model.RouteTarget{ID: "s1", Name: "Dana Ruiz", Role: "Respiratory Therapist", Reason: "Ventilator settings change"}, got.RoutedTo[0])
	assert.Equal(t, "s2", got.RoutedTo[1].ID)
	assert.Equal(t, PriorityUrgent, got.Priority)
	assert.Equal(t, "route_1717407000000", got.ID)
	assert.Equal(t, "New ventilator weaning protocol starts Monday.", got.OriginalMessage)
	assert.Same(t, got, saved)
}

func TestRoute_FallsBackToKeywords(t *testing.T) {
	t.Run("model unavailable", func(t *testing.T) {
		svc, repo, client := newService(t)
		ctx := context.Background()
		repo.On("ListStaff", ctx).Return(directory, nil)
		client.On("Complete", ctx, mock.Anything).Return("", errors.New("breaker open"))
		repo.On("SaveRoute", ctx, mock.Anything).Return(nil)

		got, err := svc.Route(ctx, "Pharmacy: urgent recall of albuterol lot 22B")
		require.NoError(t, err)
		require.Len(t, got.RoutedTo, 1)
		assert.Equal(t, "s3", got.RoutedTo[0].ID)
		assert.Equal(t, PriorityUrgent, got.Priority)
	})

	t.Run("unparseable reply goes to everyone", func(t *testing.T) {
		svc, repo, client := newService(t)
		ctx := context.Background()
		repo.On("ListStaff", ctx).Return(directory, nil)
		client.On("Complete", ctx, mock.Anything).Return("Sure! I'd send it to the nurses.", nil)
		repo.On("SaveRoute", ctx, mock.Anything).Return(nil)

		got, err := svc.Route(ctx, "Reminder: holiday potluck on Friday")
		require.NoError(t, err)
		assert.Len(t, got.RoutedTo, 3)
		assert.Equal(t, PriorityLow, got.Priority)
		assert.Equal(t, "General announcement", got.RoutedTo[0].Reason)
	})
}

func TestRoute_RequiresMessage(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Route(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, 400, status(t, err))
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		priority, text, want string
	}{
		{"HIGH", "", PriorityHigh},
		{"normal", "", PriorityMedium},
		{"", "Status update on the lab move", PriorityMedium},
		{"", "Code blue drill STAT", PriorityUrgent},
		{"whenever", "Badge renewal deadline is Friday", PriorityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePriority(tt.priority, tt.text), tt.text)
	}
}
