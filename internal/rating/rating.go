// Package rating aggregates per-user recipe ratings.
//
// A recipe's ratings form an ordered collection keyed by user id: a user's
// second submission replaces the value of their first rather than adding a
// new entry. The derived averageRating and reviewCount are always recomputed
// from the collection, never edited on their own.
//
// Everything here is a pure function of its inputs. Atomicity under
// concurrent raters is the storage layer's job (see repository/sqlite).
package rating

import (
	"fmt"
	"time"

	"github.com/sakif/recipe-share/internal/apperror"
	"github.com/sakif/recipe-share/internal/model"
)

// Validate rejects values outside [model.MinRating, model.MaxRating].
func Validate(value int) error {
	if value < model.MinRating || value > model.MaxRating {
		return apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	return nil
}

// Set holds a recipe's ratings with an index from user id to position.
// The zero value is an empty set ready to use.
type Set struct {
	entries []model.Rating
	byUser  map[string]int
	sum     int
}

// NewSet indexes ratings. If the input carries more than one entry for the
// same user, the later value wins and the first position is kept.
func NewSet(ratings []model.Rating) *Set {
	s := &Set{
		entries: make([]model.Rating, 0, len(ratings)),
		byUser:  make(map[string]int, len(ratings)),
	}
	for _, r := range ratings {
		if i, ok := s.byUser[r.User.ID]; ok {
			s.sum += r.Value - s.entries[i].Value
			s.entries[i].Value = r.Value
			s.entries[i].UpdatedAt = r.UpdatedAt
			continue
		}
		s.byUser[r.User.ID] = len(s.entries)
		s.entries = append(s.entries, r)
		s.sum += r.Value
	}
	return s
}

// Submit records value for user: it replaces the user's existing entry in
// place, or appends a new one. It reports whether an entry was replaced.
// Out-of-range values are rejected and leave the set unchanged.
func (s *Set) Submit(user model.UserSummary, value int, now time.Time) (bool, error) {
	if err := Validate(value); err != nil {
		return false, err
	}
	if s.byUser == nil {
		s.byUser = make(map[string]int)
	}

	if i, ok := s.byUser[user.ID]; ok {
		s.sum += value - s.entries[i].Value
		s.entries[i].Value = value
		s.entries[i].UpdatedAt = now
		return true, nil
	}

	s.byUser[user.ID] = len(s.entries)
	s.entries = append(s.entries, model.Rating{
		User:      user,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.sum += value
	return false, nil
}

// Get returns the rating user has given, if any.
func (s *Set) Get(userID string) (model.Rating, bool) {
	i, ok := s.byUser[userID]
	if !ok {
		return model.Rating{}, false
	}
	return s.entries[i], true
}

// Len is the review count.
func (s *Set) Len() int {
	return len(s.entries)
}

// Average is the arithmetic mean of all values, 0 for an empty set.
// No rounding is applied; that is a display concern.
func (s *Set) Average() float64 {
	if len(s.entries) == 0 {
		return 0
	}
	return float64(s.sum) / float64(len(s.entries))
}

// Ratings returns a copy of the entries in submission order.
func (s *Set) Ratings() []model.Rating {
	out := make([]model.Rating, len(s.entries))
	copy(out, s.entries)
	return out
}

// Result is the outcome of one submission.
type Result struct {
	Ratings       []model.Rating
	AverageRating float64
	ReviewCount   int
	Replaced      bool
}

// Submit applies one (user, value) submission to an existing rating list and
// returns the new list with its aggregates. The input slice is not modified.
func Submit(ratings []model.Rating, user model.UserSummary, value int, now time.Time) (Result, error) {
	set := NewSet(ratings)
	replaced, err := set.Submit(user, value, now)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ratings:       set.Ratings(),
		AverageRating: set.Average(),
		ReviewCount:   set.Len(),
		Replaced:      replaced,
	}, nil
}

// Apply submits a rating to recipe r and refreshes its derived fields.
// On error r is left untouched.
func Apply(r *model.Recipe, user model.UserSummary, value int, now time.Time) error {
	res, err := Submit(r.Ratings, user, value, now)
	if err != nil {
		return err
	}
	r.Ratings = res.Ratings
	r.AverageRating = res.AverageRating
	r.ReviewCount = res.ReviewCount
	return nil
}

// Aggregate recomputes the derived fields for an existing list.
func Aggregate(ratings []model.Rating) (average float64, count int) {
	set := NewSet(ratings)
	return set.Average(), set.Len()
}
