package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sentinel/internal/models"
)

func TestView_CameraFilterRecomputes(t *testing.T) {
	s := seededStore(t)
	v := NewView(s)

	assert.Equal(t, []int64{2, 1}, ids(v.Alerts()))

	v.SelectCamera(idPtr(10))
	assert.Equal(t, []int64{1}, ids(v.Alerts()))
	assert.Equal(t, 1, v.UnseenCount())

	_, err := s.Ingest(models.PatchFromAlert(newAlert(3, 10, models.AlertStatePending)))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(v.Alerts()))
	assert.Equal(t, 2, v.UnseenCount())

	v.SelectCamera(nil)
	assert.Equal(t, []int64{3, 2, 1}, ids(v.Alerts()))
}

func TestView_SelectedFollowsStore(t *testing.T) {
	s := seededStore(t)
	v := NewView(s)

	_, ok := v.Selected()
	assert.False(t, ok)

	v.SelectAlert(idPtr(1))
	_, err := s.Upsert(models.DescriptionPatch(1, "two people at the gate"))
	require.NoError(t, err)

	sel, ok := v.Selected()
	require.True(t, ok)
	require.NotNil(t, sel.Description)
	assert.Equal(t, "two people at the gate", *sel.Description)

	s.Remove(1)
	_, ok = v.Selected()
	assert.False(t, ok)
}

func TestView_Matches(t *testing.T) {
	v := NewView(NewStore())
	a := newAlert(1, 10, models.AlertStatePending)

	assert.True(t, v.Matches(a))
	v.SelectCamera(idPtr(20))
	assert.False(t, v.Matches(a))
	v.SelectCamera(idPtr(10))
	assert.True(t, v.Matches(a))
}

func TestView_UnseenCountIn(t *testing.T) {
	v := NewView(NewStore())
	v.SelectCamera(idPtr(20))
	list := []models.Alert{
		newAlert(3, 20, models.AlertStatePending),
		newAlert(2, 10, models.AlertStatePending),
		newAlert(1, 20, models.AlertStateConfirmed),
	}

	assert.Equal(t, 1, v.UnseenCountIn(list))
}
