package task

// Board is an ordered, non-owning view over the persisted task list.
// Newest tasks come first.
type Board struct {
	Tasks []*Task
}

func NewBoard(tasks []Task) *Board {
	b := &Board{Tasks: make([]*Task, len(tasks))}
	for i := range tasks {
		b.Tasks[i] = &tasks[i]
	}
	return b
}

func (b *Board) Add(t *Task) {
	b.Tasks = append([]*Task{t}, b.Tasks...)
}

func (b *Board) Find(id string) *Task {
	for _, t := range b.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *Board) Remove(id string) bool {
	for i, t := range b.Tasks {
		if t.ID == id {
			b.Tasks = append(b.Tasks[:i], b.Tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Board) Len() int {
	return len(b.Tasks)
}

func (b *Board) At(i int) *Task {
	if i >= 0 && i < len(b.Tasks) {
		return b.Tasks[i]
	}
	return nil
}

// Snapshot copies the board into a value slice suitable for persistence.
func (b *Board) Snapshot() []Task {
	out := make([]Task, len(b.Tasks))
	for i, t := range b.Tasks {
		out[i] = *t
	}
	return out
}

func (b *Board) Pending() int {
	n := 0
	for _, t := range b.Tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

func (b *Board) Done() int {
	return len(b.Tasks) - b.Pending()
}
