// Package devbackend is an in-process stand-in for the remote REST backend:
// face-login exchange, face comparison and roster listings. It exists for
// local development and end-to-end tests.
package devbackend

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spec-kit/faceauth-service/internal/domain"
)

//go:embed seed.json
var seedJSON []byte

// Person is a registered face. A probe matches when its bytes contain Faceprint.
type Person struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Tag          domain.RoleTag `json:"tag"`
	FaceImageURL string         `json:"faceImageUrl"`
	Faceprint    string         `json:"faceprint"`
}

// Seed returns the built-in people.
func Seed() ([]Person, error) {
	var people []Person
	if err := json.Unmarshal(seedJSON, &people); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return people, nil
}

// Directory is the backend's people registry.
type Directory struct {
	mu     sync.RWMutex
	people []Person
}

func NewDirectory(people []Person) *Directory {
	return &Directory{people: append([]Person(nil), people...)}
}

// Add registers a person.
func (d *Directory) Add(p Person) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.people = append(d.people, p)
}

// List returns the people under tag in registration order.
func (d *Directory) List(tag domain.RoleTag) []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Person
	for _, p := range d.people {
		if p.Tag == tag {
			out = append(out, p)
		}
	}
	return out
}

// Find looks a person up by tag and id.
func (d *Directory) Find(tag domain.RoleTag, id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.people {
		if p.Tag == tag && p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// ByImage looks a person up by reference image URL.
func (d *Directory) ByImage(url string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.people {
		if p.FaceImageURL != "" && p.FaceImageURL == url {
			return p, true
		}
	}
	return Person{}, false
}
