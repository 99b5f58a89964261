// Package picker joins two independently-arriving streams: image frames and
// bare train identifiers. A match is declared when an image's sequence
// number equals a train entry's sequence number plus a fixed offset. Both
// queues are bounded FIFOs guarded by a single lock; whenever either queue
// receives an element matching is re-attempted, and entries older than the
// newest match are evicted.
package picker

import (
	"sync"

	"github.com/European-XFEL/imageproc/internal/frame"
)

// Image is a frame tagged with its train sequence number.
type Image struct {
	Seq   uint64
	Frame *frame.Frame
}

// Match pairs an image with the train entry it was matched against.
type Match struct {
	Image    Image
	TrainSeq uint64
}

// Picker matches images against train identifiers.
type Picker struct {
	mu       sync.Mutex
	images   []Image
	trains   []uint64
	offset   int64
	capacity int
	onMatch  func(Match)
}

// New creates a Picker holding at most capacity entries per queue.
// offset is added to a train sequence number before comparing it with an
// image sequence number. onMatch is invoked, with the lock held, for every
// match in arrival order; it must not call back into the Picker.
func New(capacity int, offset int64, onMatch func(Match)) *Picker {
	if capacity < 1 {
		panic("picker: capacity must be >= 1")
	}
	return &Picker{capacity: capacity, offset: offset, onMatch: onMatch}
}

// PushImage adds an image to the image queue, evicting the oldest entry if
// the queue is full, then attempts matching.
func (p *Picker) PushImage(img Image) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.images) == p.capacity {
		p.images = p.images[1:]
	}
	p.images = append(p.images, img)
	p.match()
}

// PushTrain adds a train identifier to the train queue, evicting the oldest
// entry if the queue is full, then attempts matching.
func (p *Picker) PushTrain(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.trains) == p.capacity {
		p.trains = p.trains[1:]
	}
	p.trains = append(p.trains, seq)
	p.match()
}

// Pending returns the current queue depths.
func (p *Picker) Pending() (images, trains int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.images), len(p.trains)
}

// Clear empties both queues.
func (p *Picker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.images = nil
	p.trains = nil
}

// match scans for image/train pairs and evicts everything older than the
// newest match. Caller holds p.mu.
func (p *Picker) match() {
	for ii, img := range p.images {
		for ti, seq := range p.trains {
			if img.Seq == seq+uint64(p.offset) {
				if p.onMatch != nil {
					p.onMatch(Match{Image: img, TrainSeq: seq})
				}
				// Evict the matched entries and everything older.
				p.images = append([]Image(nil), p.images[ii+1:]...)
				p.trains = append([]uint64(nil), p.trains[ti+1:]...)
				// Rescan from the front of the shrunk queues.
				p.match()
				return
			}
		}
	}
}
