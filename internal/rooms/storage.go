package rooms

import (
	"fmt"
	"sync"
	"time"

	"polyculture/internal/metrics"
)

const staleTTL = 1 * time.Hour

// Store is the live room registry.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	s := &Store{
		rooms: make(map[string]*Room),
	}
	go s.sweepStale()
	return s
}

func (s *Store) Create(hostID, hostName string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times to generate a unique code
	for i := 0; i < 10; i++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		room := newRoom(code, hostID, hostName)
		s.rooms[code] = room
		metrics.ActiveRooms.Inc()
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[code]; exists {
		delete(s.rooms, code)
		metrics.ActiveRooms.Dec()
	}
}

func (s *Store) List() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	return list
}

// sweepStale drops waiting rooms that were abandoned without a close event.
// Rooms in play are left to their session's lifecycle.
func (s *Store) sweepStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for code, room := range s.rooms {
			if room.Status() != StatusPlaying && now.Sub(room.createdAt) > staleTTL {
				delete(s.rooms, code)
				metrics.ActiveRooms.Dec()
			}
		}
		s.mu.Unlock()
	}
}
