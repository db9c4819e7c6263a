package views

import (
	"context"
	"sort"
	"time"

	"judge-chat-service/internal/apperr"
	"judge-chat-service/internal/cache"
	"judge-chat-service/internal/repositories"
)

// Ignores serves the cached block relation and the derived set of rooms to
// hide: the caller's rooms whose other participant is blocked.
type Ignores struct {
	users     *cache.Accessor[int64, []int64]
	rooms     *cache.Accessor[int64, []int64]
	repo      repositories.IgnoreRepository
	roomRepo  repositories.RoomRepository
	lists     *RoomLists
	threshold int

	// unread is attached after construction; the unread box depends on the
	// ignored-room set, so ignore mutations must dirty it too.
	unread *UnreadBoxes
}

// NewIgnores wires the two ignore accessors. threshold selects the
// IgnoredRoomIDs strategy by blocked-set size.
func NewIgnores(backend cache.Backend, ttl time.Duration, repo repositories.IgnoreRepository, roomRepo repositories.RoomRepository, lists *RoomLists, threshold int) *Ignores {
	ig := &Ignores{repo: repo, roomRepo: roomRepo, lists: lists, threshold: threshold}
	ig.users = cache.NewAccessor(backend, prefixIgnoredUsers, ttl, func(ctx context.Context, userID int64) ([]int64, error) {
		return repo.ListTargets(ctx, userID)
	}, nil)
	ig.rooms = cache.NewAccessor(backend, prefixIgnoredRooms, ttl, ig.loadIgnoredRooms, nil)
	return ig
}

// AttachUnread registers the unread-box view for invalidation on ignore
// changes. Called once during wiring.
func (ig *Ignores) AttachUnread(unread *UnreadBoxes) { ig.unread = unread }

// IgnoredUserIDs returns the cached set of ids the user has blocked.
func (ig *Ignores) IgnoredUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	return ig.users.Get(ctx, userID)
}

// IsIgnored reports whether target is in user's blocked set.
func (ig *Ignores) IsIgnored(ctx context.Context, userID, targetID int64) (bool, error) {
	blocked, err := ig.IgnoredUserIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range blocked {
		if id == targetID {
			return true, nil
		}
	}
	return false, nil
}

// AddIgnore blocks target for user. Self-blocks and duplicates are
// validation errors; nothing is mutated on failure.
func (ig *Ignores) AddIgnore(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return apperr.Validation("cannot ignore yourself")
	}
	already, err := ig.IsIgnored(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if already {
		return apperr.Validation("user is already ignored")
	}
	if err := ig.repo.Add(ctx, userID, targetID); err != nil {
		return err
	}
	ig.dirtyUser(ctx, userID)
	return nil
}

// RemoveIgnore unblocks target for user; failing when the block does not
// exist keeps toggle semantics honest.
func (ig *Ignores) RemoveIgnore(ctx context.Context, userID, targetID int64) error {
	present, err := ig.IsIgnored(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !present {
		return apperr.Validation("user is not ignored")
	}
	if err := ig.repo.Remove(ctx, userID, targetID); err != nil {
		return err
	}
	ig.dirtyUser(ctx, userID)
	return nil
}

// ToggleIgnore adds or removes the block based on current state and returns
// the resulting ignored state.
func (ig *Ignores) ToggleIgnore(ctx context.Context, userID, targetID int64) (bool, error) {
	present, err := ig.IsIgnored(ctx, userID, targetID)
	if err != nil {
		return false, err
	}
	if present {
		return false, ig.RemoveIgnore(ctx, userID, targetID)
	}
	return true, ig.AddIgnore(ctx, userID, targetID)
}

// IgnoredRoomIDs returns the cached, sorted set of the user's rooms whose
// other participant is blocked.
func (ig *Ignores) IgnoredRoomIDs(ctx context.Context, userID int64) ([]int64, error) {
	return ig.rooms.Get(ctx, userID)
}

// DirtyRooms drops the cached ignored-room set: needed when the user's room
// set itself changes, not just the block relation.
func (ig *Ignores) DirtyRooms(ctx context.Context, userID int64) {
	ig.rooms.Dirty(ctx, userID)
}

func (ig *Ignores) dirtyUser(ctx context.Context, userID int64) {
	ig.users.Dirty(ctx, userID)
	ig.rooms.Dirty(ctx, userID)
	if ig.unread != nil {
		ig.unread.Dirty(ctx, userID)
	}
}

// loadIgnoredRooms computes the rooms to hide. Two equivalent strategies,
// chosen by blocked-set size: small sets intersect each blocked user's room
// list with the caller's, large sets scan the caller's membership rows once
// and test the other participant against the blocked set. Output is sorted
// so both strategies produce identical results.
func (ig *Ignores) loadIgnoredRooms(ctx context.Context, userID int64) ([]int64, error) {
	blocked, err := ig.IgnoredUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(blocked) == 0 {
		return []int64{}, nil
	}

	mine, err := ig.lists.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(mine) == 0 {
		return []int64{}, nil
	}

	hidden := make(map[int64]bool)
	if len(blocked) < ig.threshold {
		mineSet := make(map[int64]bool, len(mine))
		for _, roomID := range mine {
			mineSet[roomID] = true
		}
		for _, target := range blocked {
			theirs, err := ig.lists.Get(ctx, target)
			if err != nil {
				return nil, err
			}
			for _, roomID := range theirs {
				if mineSet[roomID] {
					hidden[roomID] = true
				}
			}
		}
	} else {
		blockedSet := make(map[int64]bool, len(blocked))
		for _, target := range blocked {
			blockedSet[target] = true
		}
		memberships, err := ig.roomRepo.MembershipsByRooms(ctx, mine)
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			if m.UserID != userID && blockedSet[m.UserID] {
				hidden[m.RoomID] = true
			}
		}
	}

	out := make([]int64, 0, len(hidden))
	for roomID := range hidden {
		out = append(out, roomID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
