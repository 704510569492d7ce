package sim

import "sync"

// CommandBuffer stages commands in a fixed-size ring between the network
// readers and the tick loop. It is safe for concurrent producers and a
// single consumer; when full, new commands are refused rather than letting
// one flooding client starve the tick.
type CommandBuffer struct {
	mu    sync.Mutex
	data  []Command
	head  int
	tail  int
	count int
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
func NewCommandBuffer(capacity int) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{data: make([]Command, capacity)}
}

// Push stages a command, returning false if the buffer is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		return false
	}
	b.data[b.tail] = cmd
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	return true
}

// Drain returns all staged commands in FIFO order and clears the buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	commands := make([]Command, b.count)
	for i := 0; i < b.count; i++ {
		commands[i] = b.data[(b.head+i)%len(b.data)]
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	return commands
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
