package preference

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dabooks/internal/common"
)

type fakeRepo struct {
	data    map[string]string
	setErr  error
	getErr  error
	setKeys []string
}

func newFakeRepo(kv map[string]string) *fakeRepo {
	if kv == nil {
		kv = map[string]string{}
	}
	return &fakeRepo{data: kv}
}

func (f *fakeRepo) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeRepo) Set(_ context.Context, key, value string) error {
	f.setKeys = append(f.setKeys, key)
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeRepo) List(context.Context) (map[string]string, error) {
	return f.data, nil
}

func (f *fakeRepo) Clear(context.Context) error {
	f.data = map[string]string{}
	return nil
}

func ambient(v bool) func() bool { return func() bool { return v } }

func TestLoad_PersistedWinsOverAmbient(t *testing.T) {
	for _, tc := range []struct {
		stored  string
		ambient bool
		want    bool
	}{
		{"true", false, true},
		{"false", true, false},
	} {
		repo := newFakeRepo(map[string]string{common.StorageKeyDarkMode: tc.stored})
		s, err := Load(context.Background(), repo, ambient(tc.ambient))
		require.NoError(t, err)
		assert.Equal(t, tc.want, s.IsDark(), tc.stored)
	}
}

func TestLoad_FirstRun_FollowsAmbientWithoutPersisting(t *testing.T) {
	repo := newFakeRepo(nil)

	s, err := Load(context.Background(), repo, ambient(true))
	require.NoError(t, err)
	assert.True(t, s.IsDark())
	assert.Empty(t, repo.setKeys)
}

func TestLoad_GarbageValue_FallsBackToAmbient(t *testing.T) {
	repo := newFakeRepo(map[string]string{common.StorageKeyDarkMode: "maybe"})

	s, err := Load(context.Background(), repo, ambient(true))
	require.NoError(t, err)
	assert.True(t, s.IsDark())
}

func TestLoad_NilAmbient_DefaultsLight(t *testing.T) {
	s, err := Load(context.Background(), newFakeRepo(nil), nil)
	require.NoError(t, err)
	assert.False(t, s.IsDark())
}

func TestLoad_RepoError(t *testing.T) {
	repo := newFakeRepo(nil)
	repo.getErr = errors.New("disk gone")

	_, err := Load(context.Background(), repo, ambient(false))
	require.ErrorContains(t, err, "disk gone")
}

func TestToggle_PersistsAndNotifiesSynchronously(t *testing.T) {
	repo := newFakeRepo(nil)
	s, err := Load(context.Background(), repo, ambient(false))
	require.NoError(t, err)

	var seen []bool
	var storedDuringNotify []string
	s.Subscribe(func(isDark bool) {
		seen = append(seen, isDark)
		storedDuringNotify = append(storedDuringNotify, repo.data[common.StorageKeyDarkMode])
		assert.Equal(t, isDark, s.IsDark(), "observer must see the new state")
	})

	got, err := s.Toggle(context.Background())
	require.NoError(t, err)
	assert.True(t, got)

	got, err = s.Toggle(context.Background())
	require.NoError(t, err)
	assert.False(t, got)

	assert.Equal(t, []bool{true, false}, seen)
	assert.Equal(t, []string{"true", "false"}, storedDuringNotify)
	assert.Equal(t, "false", repo.data[common.StorageKeyDarkMode])
}

func TestToggle_PersistFailure_LeavesStateAndSkipsObservers(t *testing.T) {
	repo := newFakeRepo(nil)
	s, err := Load(context.Background(), repo, ambient(false))
	require.NoError(t, err)

	called := false
	s.Subscribe(func(bool) { called = true })
	repo.setErr = errors.New("read-only")

	got, err := s.Toggle(context.Background())
	require.Error(t, err)
	assert.False(t, got)
	assert.False(t, s.IsDark())
	assert.False(t, called)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s, err := Load(context.Background(), newFakeRepo(nil), ambient(false))
	require.NoError(t, err)

	n := 0
	unsubscribe := s.Subscribe(func(bool) { n++ })
	_, _ = s.Toggle(context.Background())
	unsubscribe()
	_, _ = s.Toggle(context.Background())

	assert.Equal(t, 1, n)
}

func TestNotify_DropsOlderVersion(t *testing.T) {
	s, err := Load(context.Background(), newFakeRepo(nil), nil)
	require.NoError(t, err)

	var seen []bool
	s.Subscribe(func(dark bool) { seen = append(seen, dark) })

	s.notify(true, 2)
	s.notify(false, 1)

	assert.Equal(t, []bool{true}, seen)
}

func TestToggle_ConcurrentObserverMatchesState(t *testing.T) {
	s, err := Load(context.Background(), newFakeRepo(nil), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var last bool
	s.Subscribe(func(dark bool) {
		mu.Lock()
		last = dark
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 51; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Toggle(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, s.IsDark(), "an odd number of toggles ends dark")
	assert.Equal(t, s.IsDark(), last)
}
