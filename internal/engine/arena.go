package engine

// arena tracks the alive users of one level with O(1) insert, remove and
// membership. Removal swaps the last entry into the vacated slot, so
// iteration order is unspecified but every entry stays index-stable between
// mutations.
type arena struct {
	users []string
	index map[string]int
}

func newArena() *arena {
	return &arena{index: make(map[string]int)}
}

func (a *arena) add(user string) {
	if _, ok := a.index[user]; ok {
		return
	}
	a.index[user] = len(a.users)
	a.users = append(a.users, user)
}

func (a *arena) remove(user string) {
	i, ok := a.index[user]
	if !ok {
		return
	}
	last := len(a.users) - 1
	moved := a.users[last]
	a.users[i] = moved
	a.index[moved] = i
	a.users = a.users[:last]
	delete(a.index, user)
}

func (a *arena) contains(user string) bool {
	_, ok := a.index[user]
	return ok
}

func (a *arena) len() int {
	return len(a.users)
}

// members returns a copy; callers mutate the arena while iterating.
func (a *arena) members() []string {
	out := make([]string, len(a.users))
	copy(out, a.users)
	return out
}
