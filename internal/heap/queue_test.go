package heap

import "testing"

func TestFreeQueuesPushPopBitmap(t *testing.T) {
	fq := newFreeQueues()
	qi := 10

	b1 := &Block{size: qToSize(qi)}
	b2 := &Block{size: qToSize(qi)}

	lock := &fq.locks[qi]
	lock.lock()
	fq.push(qi, b1)
	fq.push(qi, b2)
	lock.unlock()

	if next := fq.firstNonEmptyAtOrAbove(0); next != qi {
		t.Fatalf("firstNonEmptyAtOrAbove(0) = %d, want %d", next, qi)
	}

	lock.lock()
	got := fq.pop(qi)
	lock.unlock()
	if got != b2 {
		t.Fatalf("pop returned %v, want most recently pushed block %v", got, b2)
	}

	lock.lock()
	got2 := fq.pop(qi)
	lock.unlock()
	if got2 != b1 {
		t.Fatalf("pop returned %v, want %v", got2, b1)
	}

	if next := fq.firstNonEmptyAtOrAbove(0); next != -1 {
		t.Fatalf("firstNonEmptyAtOrAbove(0) = %d after draining queue, want -1", next)
	}
}

func TestFreeQueuesTryLockContention(t *testing.T) {
	fq := newFreeQueues()
	lock := &fq.locks[5]

	if !lock.tryLock() {
		t.Fatal("expected first tryLock to succeed")
	}
	if lock.tryLock() {
		t.Fatal("expected second tryLock to fail while held")
	}
	lock.unlock()
	if !lock.tryLock() {
		t.Fatal("expected tryLock to succeed after unlock")
	}
	lock.unlock()
}

func TestBitmapWordsCoversAllQueues(t *testing.T) {
	if bitmapWords*64 < numQueues {
		t.Fatalf("bitmapWords=%d covers only %d bits, need %d", bitmapWords, bitmapWords*64, numQueues)
	}
}
