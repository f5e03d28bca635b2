package node

import "context"

// Cmd is one unit of off-loop work. It must return exactly one message.
type Cmd func(ctx context.Context) Message

// step is either an immediate message or a Cmd to run concurrently.
type step struct {
	msg Message
	cmd Cmd
}

// Task is the work an Update hands back to the runtime. Immediate messages
// are queued in order before any Cmd starts; Cmds run concurrently and may
// complete in any order.
type Task struct {
	steps []step
}

// None is the empty task.
func None() Task {
	return Task{}
}

// Perform wraps a single Cmd.
func Perform(cmd Cmd) Task {
	return Task{steps: []step{{cmd: cmd}}}
}

// Done yields msg without doing any work.
func Done(msg Message) Task {
	return Task{steps: []step{{msg: msg}}}
}

// Batch concatenates tasks.
func Batch(tasks ...Task) Task {
	var out Task
	for _, t := range tasks {
		out.steps = append(out.steps, t.steps...)
	}
	return out
}

// Empty reports whether the task does nothing.
func (t Task) Empty() bool {
	return len(t.steps) == 0
}

// Messages returns the immediate messages in order.
func (t Task) Messages() []Message {
	var out []Message
	for _, s := range t.steps {
		if s.msg != nil {
			out = append(out, s.msg)
		}
	}
	return out
}

// Cmds returns the asynchronous commands in order.
func (t Task) Cmds() []Cmd {
	var out []Cmd
	for _, s := range t.steps {
		if s.cmd != nil {
			out = append(out, s.cmd)
		}
	}
	return out
}
