package frame

// TaskID identifies a registered task.
type TaskID uint64

// System runs once per frame for as long as it is registered.
type System interface {
	Update()
}

// SystemFunc adapts a function to System.
type SystemFunc func()

func (f SystemFunc) Update() { f() }

type task struct {
	id     TaskID
	name   string
	system System
	// keep is checked after each run; nil keeps the task forever.
	keep func() bool
	done func()
}

// Scheduler runs registered tasks once per Tick, in registration order.
// Tasks registered during a tick first run on the following tick.
type Scheduler struct {
	tasks  []*task
	nextID TaskID
	frame  uint64
}

func NewScheduler(systems ...System) *Scheduler {
	s := &Scheduler{}
	for _, system := range systems {
		s.Add(system)
	}
	return s
}

// Add registers a system that runs every frame.
func (s *Scheduler) Add(system System) TaskID {
	if system == nil {
		return 0
	}
	return s.register("", system, nil, nil)
}

// While registers run for the next frame and keeps it registered for as long
// as keep reports true after each run. onDone, if set, is called once when
// the task drops out.
func (s *Scheduler) While(name string, run func(), keep func() bool, onDone func()) TaskID {
	if run == nil {
		return 0
	}
	if keep == nil {
		keep = func() bool { return false }
	}
	return s.register(name, SystemFunc(run), keep, onDone)
}

func (s *Scheduler) register(name string, system System, keep func() bool, done func()) TaskID {
	s.nextID++
	s.tasks = append(s.tasks, &task{
		id:     s.nextID,
		name:   name,
		system: system,
		keep:   keep,
		done:   done,
	})
	return s.nextID
}

// Tick advances one frame.
func (s *Scheduler) Tick() {
	if s == nil {
		return
	}
	s.frame++

	n := len(s.tasks)
	kept := make([]*task, 0, n)
	for _, t := range s.tasks[:n] {
		t.system.Update()
		if t.keep == nil || t.keep() {
			kept = append(kept, t)
			continue
		}
		if t.done != nil {
			t.done()
		}
	}
	// keep anything registered while the tick ran
	s.tasks = append(kept, s.tasks[n:]...)
}

// Active reports whether the task with id is still registered.
func (s *Scheduler) Active(id TaskID) bool {
	if s == nil || id == 0 {
		return false
	}
	for _, t := range s.tasks {
		if t.id == id {
			return true
		}
	}
	return false
}

// Names lists named tasks in run order.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.name != "" {
			names = append(names, t.name)
		}
	}
	return names
}

func (s *Scheduler) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tasks)
}

// Frame returns the number of ticks so far.
func (s *Scheduler) Frame() uint64 {
	if s == nil {
		return 0
	}
	return s.frame
}
