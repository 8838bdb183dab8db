package library

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otakuwave/model"
)

const (
	testBase    = "http://localhost:8080"
	testDefault = "https://img.example.com/default.jpg"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	tracks []*model.Track
	err    error
	calls  int
}

func (r *fakeRepo) ListTracks(context.Context) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return append([]*model.Track(nil), r.tracks...), nil
}

func (r *fakeRepo) GetTrackByID(_ context.Context, id int64) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	for _, t := range r.tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) CreateTrack(_ context.Context, rec model.TrackRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	r.nextID++
	t := &model.Track{ID: r.nextID}
	applyRecord(t, rec)
	r.tracks = append(r.tracks, t)
	return r.nextID, nil
}

func (r *fakeRepo) UpdateTrack(_ context.Context, id int64, rec model.TrackRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	for _, t := range r.tracks {
		if t.ID == id {
			applyRecord(t, rec)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteTrack(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	for i, t := range r.tracks {
		if t.ID == id {
			r.tracks = append(r.tracks[:i], r.tracks[i+1:]...)
			break
		}
	}
	return nil
}

type putCall struct {
	bucket, name, contentType string
	data                      []byte
}

type removeCall struct {
	bucket, name string
}

type fakeStore struct {
	mu      sync.Mutex
	puts    []putCall
	removes []removeCall
	failPut map[string]bool
	err     error
}

func (s *fakeStore) PutObject(_ context.Context, bucket, name string, r io.Reader, _ int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[bucket] {
		return errors.New("put failed")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.puts = append(s.puts, putCall{bucket: bucket, name: name, contentType: contentType, data: data})
	return nil
}

func (s *fakeStore) RemoveObject(_ context.Context, bucket, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.removes = append(s.removes, removeCall{bucket: bucket, name: name})
	return nil
}

func (s *fakeStore) removesIn(bucket string) int {
	n := 0
	for _, r := range s.removes {
		if r.bucket == bucket {
			n++
		}
	}
	return n
}

type fakeCache struct {
	tracks      []*model.Track
	ok          bool
	invalidated int
}

func (c *fakeCache) Get(context.Context) ([]*model.Track, bool, error) {
	return c.tracks, c.ok, nil
}

func (c *fakeCache) Set(_ context.Context, tracks []*model.Track) error {
	c.tracks, c.ok = tracks, true
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.tracks, c.ok = nil, false
	c.invalidated++
	return nil
}

func newTestClient() (*Client, *fakeRepo, *fakeStore) {
	repo := &fakeRepo{}
	store := &fakeStore{}
	c := NewClient(repo, store, Options{
		PublicBaseURL: testBase,
		AudioBucket:   "songs",
		CoverBucket:   "covers",
		DefaultCover:  testDefault,
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c, repo, store
}

func audioFile(name string) *File {
	return &File{Name: name, Size: 4, Reader: strings.NewReader("RIFF")}
}

func TestUploadFile_ReturnsPublicLocator(t *testing.T) {
	c, _, store := newTestClient()

	loc, err := c.UploadFile(context.Background(), *audioFile("My Song.mp3"), "songs")

	require.NoError(t, err)
	assert.Equal(t, testBase+"/storage/v1/object/public/songs/1700000000000-My_Song.mp3", loc)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "audio/mpeg", store.puts[0].contentType)
	assert.Equal(t, []byte("RIFF"), store.puts[0].data)
}

func TestUploadFile_Failure(t *testing.T) {
	c, _, store := newTestClient()
	store.failPut = map[string]bool{"songs": true}

	_, err := c.UploadFile(context.Background(), *audioFile("a.mp3"), "songs")

	assert.ErrorIs(t, err, ErrRepository)
}

func TestRemoveFile_SkipsExternal(t *testing.T) {
	c, _, store := newTestClient()

	removed, err := c.RemoveFile(context.Background(), "covers", "https://cdn.example.com/x.jpg")

	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, store.removes)
}

func TestListTracks_UsesCache(t *testing.T) {
	c, repo, _ := newTestClient()
	cache := &fakeCache{}
	c.WithCache(cache)
	repo.tracks = []*model.Track{{ID: 1, Name: "a"}}

	first, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	second, err := c.ListTracks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)

	_, err = c.CreateTrack(context.Background(), model.TrackRecord{Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	third, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestRepositoryErrorsAreGeneric(t *testing.T) {
	c, repo, _ := newTestClient()
	repo.err = errors.New("connection refused")
	ctx := context.Background()

	_, err := c.ListTracks(ctx)
	assert.ErrorIs(t, err, ErrRepository)
	_, err = c.CreateTrack(ctx, model.TrackRecord{})
	assert.ErrorIs(t, err, ErrRepository)
	assert.ErrorIs(t, c.UpdateTrack(ctx, 1, model.TrackRecord{}), ErrRepository)
	assert.ErrorIs(t, c.DeleteTrack(ctx, 1), ErrRepository)
}

func TestGetTrack_NotFound(t *testing.T) {
	c, _, _ := newTestClient()

	_, err := c.GetTrack(context.Background(), 9)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_ValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name    string
		form    Form
		editing *model.Track
	}{
		{"missing name", Form{Artist: "x", Audio: audioFile("a.mp3")}, nil},
		{"missing artist", Form{Name: "x", Audio: audioFile("a.mp3")}, nil},
		{"blank name", Form{Name: "  ", Artist: "x", Audio: audioFile("a.mp3")}, nil},
		{"missing audio on create", Form{Name: "x", Artist: "y"}, nil},
		{"missing name on edit", Form{Artist: "y"}, &model.Track{ID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, repo, store := newTestClient()

			track, note, err := c.Submit(context.Background(), tt.form, tt.editing)

			assert.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, track)
			assert.Equal(t, MsgMissingFields, note.Message)
			assert.Equal(t, NotifyError, note.Type)
			assert.Zero(t, repo.calls)
			assert.Empty(t, store.puts)
		})
	}
}

func TestSubmit_CreateWithDefaultCover(t *testing.T) {
	c, repo, store := newTestClient()

	track, note, err := c.Submit(context.Background(), Form{Name: "Gurenge", Artist: "LiSA", Audio: audioFile("g.mp3")}, nil)

	require.NoError(t, err)
	assert.Equal(t, MsgUploaded, note.Message)
	assert.Equal(t, NotifySuccess, note.Type)
	assert.Equal(t, int64(3000), note.DismissAfterMs)
	assert.Equal(t, testDefault, track.CoverURL)
	assert.Contains(t, track.AudioURL, "/songs/")
	require.Len(t, store.puts, 1)
	assert.Equal(t, "songs", store.puts[0].bucket)
	require.Len(t, repo.tracks, 1)
	assert.Equal(t, "Gurenge", repo.tracks[0].Name)
}

func TestSubmit_CoverFileWinsOverURL(t *testing.T) {
	c, _, store := newTestClient()
	form := Form{
		Name:     "a",
		Artist:   "b",
		CoverURL: "https://cdn.example.com/ignored.jpg",
		Audio:    audioFile("a.mp3"),
		Cover:    &File{Name: "c.png", Size: 3, Reader: strings.NewReader("PNG")},
	}

	track, _, err := c.Submit(context.Background(), form, nil)

	require.NoError(t, err)
	require.Len(t, store.puts, 2)
	assert.Equal(t, "covers", store.puts[1].bucket)
	assert.Equal(t, "image/png", store.puts[1].contentType)
	assert.Equal(t, testBase+"/storage/v1/object/public/covers/"+store.puts[1].name, track.CoverURL)
}

func TestSubmit_CoverURLField(t *testing.T) {
	c, _, _ := newTestClient()
	form := Form{Name: "a", Artist: "b", CoverURL: "https://cdn.example.com/c.jpg", Audio: audioFile("a.mp3")}

	track, _, err := c.Submit(context.Background(), form, nil)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/c.jpg", track.CoverURL)
}

func TestSubmit_EditKeepsAudioAndCover(t *testing.T) {
	c, repo, store := newTestClient()
	existing := &model.Track{ID: 1, Name: "old", Artist: "x", AudioURL: "http://a/old.mp3", CoverURL: "http://a/old.jpg"}
	repo.tracks = []*model.Track{existing}
	repo.nextID = 1

	track, note, err := c.Submit(context.Background(), Form{Name: "new", Artist: "y"}, existing)

	require.NoError(t, err)
	assert.Equal(t, MsgUpdated, note.Message)
	assert.Empty(t, store.puts)
	assert.Equal(t, "new", track.Name)
	assert.Equal(t, "http://a/old.mp3", track.AudioURL)
	assert.Equal(t, "http://a/old.jpg", track.CoverURL)
	assert.Equal(t, "new", repo.tracks[0].Name)
}

func TestSubmit_CoverFailureLeavesAudio(t *testing.T) {
	c, repo, store := newTestClient()
	store.failPut = map[string]bool{"covers": true}
	form := Form{
		Name:   "a",
		Artist: "b",
		Audio:  audioFile("a.mp3"),
		Cover:  &File{Name: "c.jpg", Reader: strings.NewReader("x")},
	}

	_, note, err := c.Submit(context.Background(), form, nil)

	assert.ErrorIs(t, err, ErrRepository)
	assert.Equal(t, MsgUploadFailed, note.Message)
	assert.Len(t, store.puts, 1)
	assert.Empty(t, store.removes)
	assert.Empty(t, repo.tracks)
}

func TestSubmit_RepositoryFailure(t *testing.T) {
	c, repo, _ := newTestClient()
	repo.err = errors.New("db down")

	_, note, err := c.Submit(context.Background(), Form{Name: "a", Artist: "b", Audio: audioFile("a.mp3")}, nil)

	assert.ErrorIs(t, err, ErrRepository)
	assert.Equal(t, MsgUploadFailed, note.Message)
}

func TestRemove_DefaultCoverSkipsCoverBucket(t *testing.T) {
	c, repo, store := newTestClient()
	track := &model.Track{
		ID:       1,
		AudioURL: testBase + "/storage/v1/object/public/songs/1-a.mp3",
		CoverURL: testDefault,
	}
	repo.tracks = []*model.Track{track}

	note, err := c.Remove(context.Background(), track)

	require.NoError(t, err)
	assert.Equal(t, MsgDeleted, note.Message)
	assert.Equal(t, 1, store.removesIn("songs"))
	assert.Equal(t, 0, store.removesIn("covers"))
	assert.Equal(t, "1-a.mp3", store.removes[0].name)
	assert.Empty(t, repo.tracks)
}

func TestRemove_CustomCoverRemovesOncePerBucket(t *testing.T) {
	c, repo, store := newTestClient()
	track := &model.Track{
		ID:       1,
		AudioURL: testBase + "/storage/v1/object/public/songs/1-a.mp3",
		CoverURL: testBase + "/storage/v1/object/public/covers/1-a.jpg",
	}
	repo.tracks = []*model.Track{track}

	_, err := c.Remove(context.Background(), track)

	require.NoError(t, err)
	assert.Equal(t, 1, store.removesIn("songs"))
	assert.Equal(t, 1, store.removesIn("covers"))
}

func TestRemove_StorageFailure(t *testing.T) {
	c, repo, store := newTestClient()
	store.err = errors.New("minio down")
	track := &model.Track{ID: 1, AudioURL: testBase + "/storage/v1/object/public/songs/1-a.mp3"}
	repo.tracks = []*model.Track{track}

	note, err := c.Remove(context.Background(), track)

	assert.ErrorIs(t, err, ErrRepository)
	assert.Equal(t, MsgDeleteFailed, note.Message)
	assert.Len(t, repo.tracks, 1)
}

func TestRemoveByID_NotFound(t *testing.T) {
	c, _, _ := newTestClient()

	_, err := c.RemoveByID(context.Background(), 5)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportDir(t *testing.T) {
	c, repo, store := newTestClient()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Opening Theme.mp3"), bytes.Repeat([]byte{0}, 512), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	created, err := NewImporter(c).ImportDir(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Opening Theme", created[0].Name)
	assert.Equal(t, unknownArtist, created[0].Artist)
	assert.Equal(t, testDefault, created[0].CoverURL)
	require.Len(t, store.puts, 1)
	assert.Len(t, store.puts[0].data, 512)
	assert.Len(t, repo.tracks, 1)
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("/x/a.MP3"))
	assert.True(t, IsAudioFile("b.flac"))
	assert.False(t, IsAudioFile("c.jpg"))
	assert.False(t, IsAudioFile("noext"))
}
