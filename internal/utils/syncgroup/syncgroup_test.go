package syncgroup

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestGroup_Success(t *testing.T) {
	require := testutil.Require(t)

	group, _ := New(context.Background(), WithThrottling(4))
	var calls int32
	for i := 0; i < 20; i++ {
		group.Go(func() error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}

	require.NoError(group.Wait())
	require.Equal(int32(20), calls)
}

func TestGroup_Throttled(t *testing.T) {
	require := testutil.Require(t)

	group, _ := New(context.Background(), WithThrottling(2))
	var running, peak int32
	for i := 0; i < 10; i++ {
		group.Go(func() error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}

	require.NoError(group.Wait())
	require.LessOrEqual(peak, int32(2))
}

func TestGroup_Error(t *testing.T) {
	require := testutil.Require(t)

	group, ctx := New(context.Background(), WithThrottling(1))
	group.Go(func() error {
		return xerrors.New("boom")
	})
	group.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := group.Wait()
	require.Error(err)
}

func TestMap_PreservesOrder(t *testing.T) {
	require := testutil.Require(t)

	inputs := []int{5, 1, 4, 2, 3}
	outputs, err := Map(context.Background(), inputs, 3, func(ctx context.Context, input int) (int, error) {
		time.Sleep(time.Duration(input) * time.Millisecond)
		return input * 10, nil
	})
	require.NoError(err)
	require.Equal([]int{50, 10, 40, 20, 30}, outputs)
}

func TestMap_Error(t *testing.T) {
	require := testutil.Require(t)

	_, err := Map(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, input int) (int, error) {
		if input == 2 {
			return 0, xerrors.New("boom")
		}
		return input, nil
	})
	require.Error(err)
}
