//go:build !no_containers

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	corestore "github.com/kilianp07/crisistriage/core/store"
	"github.com/kilianp07/crisistriage/test/util"
)

func TestPostgresStore_Container(t *testing.T) {
	util.RequireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn, cleanup, err := util.StartPostgres(ctx)
	require.NoError(t, err)
	defer cleanup()

	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveResource(ctx, ambulance("a", 3)))
	unverified := ambulance("b", 3)
	unverified.Verified = false
	require.NoError(t, s.SaveResource(ctx, unverified))

	eligible, err := s.FindResources(ctx, corestore.Eligible())
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "a", eligible[0].ID)

	// Concurrent reservations never push availability below zero.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		granted  int
		conflict int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateResourceAvailability(ctx, "a", -1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else if assert.ErrorIs(t, err, errs.ErrCapacityConflict) {
				conflict++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, granted)
	assert.Equal(t, 3, conflict)

	r, err := s.GetResource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Availability)
	assert.Equal(t, model.ResourceDeployed, r.Status)

	r, err = s.UpdateResourceAvailability(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, model.ResourceActive, r.Status)

	_, err = s.UpdateResourceAvailability(ctx, "b", -1)
	assert.ErrorIs(t, err, errs.ErrCapacityConflict)

	req := model.EmergencyRequest{ID: "r1", Status: model.StatusPending, ReceivedAt: time.Now().UTC()}
	require.NoError(t, s.SaveRequest(ctx, req))
	req.Status = model.StatusMatched
	require.NoError(t, s.UpdateRequest(ctx, req, model.StatusPending))
	err = s.UpdateRequest(ctx, req, model.StatusPending)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	list, err := s.ListRequests(ctx, corestore.RequestFilter{Status: model.StatusMatched})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}
