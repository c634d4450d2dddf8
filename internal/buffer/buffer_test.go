package buffer

import "testing"

func TestAppendAndBytes(t *testing.T) {
	b := Get()
	defer b.Release()

	b.AppendString("hello ")
	b.Append([]byte("world"))
	b.AppendByte('!')

	if got := b.String(); got != "hello world!" {
		t.Fatalf("String() = %q, want %q", got, "hello world!")
	}
	if b.Len() != len("hello world!") {
		t.Fatalf("Len() = %d, want %d", b.Len(), len("hello world!"))
	}
}

func TestClearRetainsCapacityNotContent(t *testing.T) {
	b := Get()
	defer b.Release()

	b.AppendString("some data that takes up space")
	priorCap := cap(b.Bytes())

	b.Clear()

	if b.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", b.Len())
	}
	if cap(b.Bytes()) < priorCap {
		t.Fatalf("capacity shrank after Clear(): got %d, had %d", cap(b.Bytes()), priorCap)
	}
}

func TestReserveGrowsCapacityOnly(t *testing.T) {
	b := Get()
	defer b.Release()

	b.AppendString("abc")
	b.Reserve(1024)

	if b.Len() != 3 {
		t.Fatalf("Len() after Reserve = %d, want 3", b.Len())
	}
	if cap(b.Bytes()) < 1024+3 {
		t.Fatalf("capacity after Reserve = %d, want >= %d", cap(b.Bytes()), 1024+3)
	}
}
