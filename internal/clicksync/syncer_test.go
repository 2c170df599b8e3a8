package clicksync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	args := r.Called(ctx)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

func (r *MockURLRepository) IncrementClicks(ctx context.Context, shortCode string, delta int64) error {
	args := r.Called(ctx, shortCode, delta)
	return args.Error(0)
}

type MockClickCache struct {
	mock.Mock
}

func (c *MockClickCache) ReadAndResetClicks(ctx context.Context, shortCode string) (int64, error) {
	args := c.Called(ctx, shortCode)
	return args.Get(0).(int64), args.Error(1)
}

func (c *MockClickCache) AddClicks(ctx context.Context, shortCode string, delta int64) error {
	args := c.Called(ctx, shortCode, delta)
	return args.Error(0)
}

type SyncerTestSuite struct {
	suite.Suite
	errUnknown error
	repoMock   *MockURLRepository
	cacheMock  *MockClickCache
	syncer     *Syncer
}

func (suite *SyncerTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *SyncerTestSuite) SetupSubTest() {
	suite.repoMock = new(MockURLRepository)
	suite.cacheMock = new(MockClickCache)
	suite.syncer = NewSyncer(suite.repoMock, suite.cacheMock, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *SyncerTestSuite) TearDownSubTest() {
	suite.repoMock.AssertExpectations(suite.T())
	suite.cacheMock.AssertExpectations(suite.T())
}

func (suite *SyncerTestSuite) TestSyncCode() {
	suite.Run("cache error", func() {
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(0), suite.errUnknown)

		err := suite.syncer.SyncCode(context.Background(), "abc1234")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("zero delta is a no-op", func() {
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(0), nil)

		err := suite.syncer.SyncCode(context.Background(), "abc1234")

		suite.NoError(err)
		suite.repoMock.AssertNotCalled(suite.T(), "IncrementClicks", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("merge failure returns the delta to the cache", func() {
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(3), nil)
		suite.repoMock.
			On("IncrementClicks", context.Background(), "abc1234", int64(3)).
			Once().
			Return(suite.errUnknown)
		suite.cacheMock.
			On("AddClicks", context.Background(), "abc1234", int64(3)).
			Once().
			Return(nil)

		err := suite.syncer.SyncCode(context.Background(), "abc1234")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("success", func() {
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(3), nil)
		suite.repoMock.
			On("IncrementClicks", context.Background(), "abc1234", int64(3)).
			Once().
			Return(nil)

		err := suite.syncer.SyncCode(context.Background(), "abc1234")

		suite.NoError(err)
	})

	suite.Run("second run with no new clicks adds nothing", func() {
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(5), nil)
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "abc1234").
			Once().
			Return(int64(0), nil)
		suite.repoMock.
			On("IncrementClicks", context.Background(), "abc1234", int64(5)).
			Once().
			Return(nil)

		suite.NoError(suite.syncer.SyncCode(context.Background(), "abc1234"))
		suite.NoError(suite.syncer.SyncCode(context.Background(), "abc1234"))
	})
}

func (suite *SyncerTestSuite) TestSweep() {
	suite.Run("list failure skips the sweep", func() {
		suite.repoMock.
			On("ListShortCodes", context.Background()).
			Once().
			Return(nil, suite.errUnknown)

		suite.syncer.sweep(context.Background())

		suite.cacheMock.AssertNotCalled(suite.T(), "ReadAndResetClicks", mock.Anything, mock.Anything)
	})

	suite.Run("one failing code does not abort the rest", func() {
		suite.repoMock.
			On("ListShortCodes", context.Background()).
			Once().
			Return([]string{"bad1234", "good123"}, nil)
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "bad1234").
			Once().
			Return(int64(0), suite.errUnknown)
		suite.cacheMock.
			On("ReadAndResetClicks", context.Background(), "good123").
			Once().
			Return(int64(2), nil)
		suite.repoMock.
			On("IncrementClicks", context.Background(), "good123", int64(2)).
			Once().
			Return(nil)

		suite.syncer.sweep(context.Background())
	})
}

func (suite *SyncerTestSuite) TestRun() {
	suite.Run("periodic sweep merges pending deltas", func() {
		synced := make(chan struct{})

		suite.repoMock.
			On("ListShortCodes", mock.Anything).
			Return([]string{"abc1234"}, nil)
		suite.cacheMock.
			On("ReadAndResetClicks", mock.Anything, "abc1234").
			Return(int64(1), nil)
		suite.repoMock.
			On("IncrementClicks", mock.Anything, "abc1234", int64(1)).
			Run(func(mock.Arguments) {
				select {
				case synced <- struct{}{}:
				default:
				}
			}).
			Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- suite.syncer.Run(ctx)
		}()

		select {
		case <-synced:
		case <-time.After(time.Second):
			suite.FailNow("sweep never merged the pending delta")
		}

		cancel()

		select {
		case err := <-done:
			suite.NoError(err)
		case <-time.After(time.Second):
			suite.FailNow("Run did not stop on cancellation")
		}
	})

	suite.Run("eager flush is handled without waiting for the ticker", func() {
		suite.syncer = NewSyncer(suite.repoMock, suite.cacheMock, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

		synced := make(chan struct{})

		suite.cacheMock.
			On("ReadAndResetClicks", mock.Anything, "abc1234").
			Once().
			Return(int64(2), nil)
		suite.repoMock.
			On("IncrementClicks", mock.Anything, "abc1234", int64(2)).
			Once().
			Run(func(mock.Arguments) {
				close(synced)
			}).
			Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- suite.syncer.Run(ctx)
		}()

		suite.syncer.Flush("abc1234")

		select {
		case <-synced:
		case <-time.After(time.Second):
			suite.FailNow("eager flush never merged the pending delta")
		}

		cancel()

		select {
		case err := <-done:
			suite.NoError(err)
		case <-time.After(time.Second):
			suite.FailNow("Run did not stop on cancellation")
		}
	})
}

func TestFlushNeverBlocks(t *testing.T) {
	syncer := NewSyncer(new(MockURLRepository), new(MockClickCache), time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < flushBufferSize*2; i++ {
			syncer.Flush("abc1234")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Flush blocked with a full buffer")
	}
}

func TestSyncerTestSuite(t *testing.T) {
	suite.Run(t, new(SyncerTestSuite))
}
