package worker

// Callback is called with the message ending the exchange started by an
// action.
type Callback func(msg *Message)

// Pipe connects a worker to the goroutine driving it.
//
// The driving goroutine posts actions and gets messages, the worker gets
// actions and posts messages. Each side must be used by a single goroutine.
type Pipe struct {
	actions  *Queue[*Message]
	messages *Queue[*Message]

	// Only accessed by the driving side
	callbacks map[*Message]Callback
}

// NewPipe creates a new pipe.
func NewPipe() *Pipe {
	return &Pipe{
		actions:   NewQueue[*Message](),
		messages:  NewQueue[*Message](),
		callbacks: make(map[*Message]Callback),
	}
}

// PostAction sends an action to the worker. cb, if not nil, is called by
// GetMessage with the OKAY, ERROR or UNSUPPORTED message answering it.
func (p *Pipe) PostAction(typ MessageType, inResponseTo *Message, data interface{}, cb Callback) *Message {
	action := &Message{Type: typ, InResponseTo: inResponseTo, Data: data}
	if cb != nil {
		p.callbacks[action] = cb
	}
	p.actions.Enqueue(action)
	return action
}

// GetMessage receives a message from the worker, if any. When the message
// ends an exchange, the callback registered with PostAction runs first.
func (p *Pipe) GetMessage() (*Message, bool) {
	msg, ok := p.messages.Dequeue()
	if !ok {
		return nil, false
	}
	if msg.InResponseTo != nil && msg.Type.terminal() {
		if cb, ok := p.callbacks[msg.InResponseTo]; ok {
			delete(p.callbacks, msg.InResponseTo)
			cb(msg)
		}
	}
	return msg, true
}

// GetAction receives an action, if any. Called by the worker.
func (p *Pipe) GetAction() (*Message, bool) {
	return p.actions.Dequeue()
}

// PostMessage sends a message to the driving goroutine. Called by the
// worker.
func (p *Pipe) PostMessage(typ MessageType, inResponseTo *Message, data interface{}) {
	p.messages.Enqueue(&Message{Type: typ, InResponseTo: inResponseTo, Data: data})
}
