package heap

import "testing"

func TestSizeClassTableMonotonic(t *testing.T) {
	for i := 1; i < numQueues; i++ {
		if minSizeTable[i] <= minSizeTable[i-1] {
			t.Fatalf("minSizeTable not strictly increasing at %d: %d <= %d", i, minSizeTable[i], minSizeTable[i-1])
		}
	}
}

func TestSizeToQRoundTrip(t *testing.T) {
	sizes := []uintptr{1, 7, 8, 31, 32, 33, 100, 1000, 1 << 16, maxBlockSize - 1}
	for _, s := range sizes {
		qi := sizeToQ(s)
		got := qToSize(qi)
		if got < s {
			t.Errorf("round-trip failed for size %d: qtosize(sizetoq(%d))=%d < %d", s, s, got, s)
		}
	}
}

func TestSizeToQBoundaryGoesToHigherQueue(t *testing.T) {
	// A request exactly equal to a queue boundary must land in the higher
	// queue (Good-Fit rule): sizeToQ(minSizeTable[i]) == i, and
	// sizeToQ(minSizeTable[i]+1) must be > i.
	for _, i := range []int{0, 1, 256, 1000} {
		boundary := minSizeTable[i]
		if got := sizeToQ(boundary); got != i {
			t.Errorf("sizeToQ(%d) = %d, want %d", boundary, got, i)
		}
		if i+1 < numQueues {
			next := sizeToQ(boundary + 1)
			if next <= i {
				t.Errorf("sizeToQ(%d) = %d, want > %d", boundary+1, next, i)
			}
		}
	}
}

func TestQueueFloorContainment(t *testing.T) {
	for i := 0; i < numQueues-1; i++ {
		lo := minSizeTable[i]
		hi := minSizeTable[i+1]
		mid := lo + (hi-lo)/2
		if mid == lo {
			mid = lo
		}
		qi := queueFloor(mid)
		if qi != i {
			t.Errorf("queueFloor(%d) = %d, want %d (range [%d,%d))", mid, qi, i, lo, hi)
		}
	}
}

func TestSizeToQAboveMax(t *testing.T) {
	if got := sizeToQ(maxBlockSize + 1); got != numQueues {
		t.Errorf("sizeToQ(maxBlockSize+1) = %d, want sentinel %d", got, numQueues)
	}
}
