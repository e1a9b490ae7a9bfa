package rtc

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func candidate(s string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: s}
}

func TestPendingFlushReturnsInOrder(t *testing.T) {
	q := newPendingCandidates()
	q.enqueue("peer-a", candidate("first"))
	q.enqueue("peer-a", candidate("second"))
	q.enqueue("peer-b", candidate("other"))

	flushed := q.flush("peer-a")
	if len(flushed) != 2 {
		t.Fatalf("flushed %d candidates, want 2", len(flushed))
	}
	if flushed[0].Candidate != "first" || flushed[1].Candidate != "second" {
		t.Errorf("flush order = %q, %q; want first, second", flushed[0].Candidate, flushed[1].Candidate)
	}
	if q.size("peer-b") != 1 {
		t.Errorf("peer-b buffer disturbed by flushing peer-a")
	}
}

func TestPendingFlushIsOneShot(t *testing.T) {
	q := newPendingCandidates()
	q.enqueue("peer-a", candidate("only"))

	if got := q.flush("peer-a"); len(got) != 1 {
		t.Fatalf("first flush returned %d candidates, want 1", len(got))
	}
	if got := q.flush("peer-a"); got != nil {
		t.Errorf("second flush returned %v, want nil", got)
	}
}

func TestPendingFlushUnknownPeer(t *testing.T) {
	q := newPendingCandidates()
	if got := q.flush("nobody"); got != nil {
		t.Errorf("flush for unknown peer returned %v, want nil", got)
	}
}

func TestPendingDropAndClear(t *testing.T) {
	q := newPendingCandidates()
	q.enqueue("peer-a", candidate("a"))
	q.enqueue("peer-b", candidate("b"))

	q.drop("peer-a")
	if q.size("peer-a") != 0 {
		t.Errorf("drop left %d candidates for peer-a", q.size("peer-a"))
	}

	q.clear()
	if q.size("peer-b") != 0 {
		t.Errorf("clear left %d candidates for peer-b", q.size("peer-b"))
	}
}
