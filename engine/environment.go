package engine

// Repository is the storage contract the executor needs to resolve a
// contract's program and data, and to persist the result of a transaction.
// Concrete backings (in-memory, LevelDB) live in the repository package and
// satisfy this interface.
type Repository interface {
	GetContractProgram(address Block) (Block, bool)
	GetContractData(address Block) (Block, bool)
	SaveTransaction(tx TransactionPart)
	GetAllMessages(limit, offset uint64) []Message
	GetMessagesByContract(address Block, limit, offset uint64) []Message
}

// ContractState is the outcome of a successfully executed message: the
// message itself, the contract's data after execution, and the ordered
// TransactionPart tree for every internal message it emitted via SEND.
type ContractState struct {
	Message  Message
	Data     Block
	Children []TransactionPart
}

// GetAsBlock renders a ContractState to its wire encoding.
func (c ContractState) GetAsBlock() Block {
	b := NewBuilder()
	b.WriteBlockWithLen(c.Message.GetAsBlock())
	b.WriteBlockWithLen(c.Data)
	b.WriteU64(uint64(len(c.Children)))
	for _, child := range c.Children {
		b.WriteBlockWithLen(child.GetAsBlock())
	}
	return b.Build()
}

// TransactionPart is one node of the execution tree: either a Message that
// could not be executed (no resolvable program/data, or a hash mismatch on
// deployment) or a ContractState recording a successful execution.
type TransactionPart struct {
	executed bool
	message  Message
	state    ContractState
}

// NewMessagePart wraps an unexecuted Message.
func NewMessagePart(m Message) TransactionPart {
	return TransactionPart{executed: false, message: m}
}

// NewStatePart wraps a successfully executed ContractState.
func NewStatePart(s ContractState) TransactionPart {
	return TransactionPart{executed: true, state: s}
}

// Executed reports whether this part represents a successful execution.
func (t TransactionPart) Executed() bool {
	return t.executed
}

// Message returns the wrapped Message when Executed is false.
func (t TransactionPart) Message() Message {
	return t.message
}

// State returns the wrapped ContractState when Executed is true.
func (t TransactionPart) State() ContractState {
	return t.state
}

// GetAsBlock renders a TransactionPart as a one-byte tag (0=Message,
// 1=State) followed by the length-prefixed tagged payload.
func (t TransactionPart) GetAsBlock() Block {
	b := NewBuilder()
	if t.executed {
		b.WriteU8(1)
		b.WriteBlockWithLen(t.state.GetAsBlock())
	} else {
		b.WriteU8(0)
		b.WriteBlockWithLen(t.message.GetAsBlock())
	}
	return b.Build()
}

// ExecOptions bounds and instruments a single executor invocation.
type ExecOptions struct {
	// MaxSteps bounds each VM run; zero means unbounded.
	MaxSteps uint64
	// StepHook, if set, is attached to every VM constructed during the
	// invocation (including recursive internal-message executions).
	StepHook func(Opcode)
}

// Environment is the recursive transaction executor: it resolves a
// message's program and data, runs the VM, and recursively executes every
// internal message the VM emitted via SEND, in emission order, against the
// same pre-transaction repository snapshot.
type Environment struct {
	message    Message
	order      []Message
	repository Repository
	options    ExecOptions
}

// NewEnvironment constructs an Environment bound to a single message and a
// repository snapshot.
func NewEnvironment(message Message, repository Repository, options ExecOptions) *Environment {
	return &Environment{message: message, repository: repository, options: options}
}

// SendMessage implements Sender: it queues an internal message for
// recursive execution once the current message's VM run completes.
func (e *Environment) SendMessage(m Message) {
	e.order = append(e.order, m)
}

// getVM resolves the Program and data for the environment's message and
// constructs the VM that will run it. A deploying message's declared Init
// must hash to the receiver address; any other message resolves its
// program/data from the repository. Returns false if resolution fails for
// any reason (no init and no stored contract, header parse failure, no
// entrypoint for the message's kind).
func (e *Environment) getVM() (*VM, bool) {
	var init Init
	if e.message.Init != nil {
		init = *e.message.Init
		if !init.GetAsBlock().Hash().Equal(e.message.Receiver) {
			return nil, false
		}
	} else {
		program, ok := e.repository.GetContractProgram(e.message.Receiver)
		if !ok {
			return nil, false
		}
		data, ok := e.repository.GetContractData(e.message.Receiver)
		if !ok {
			return nil, false
		}
		init = Init{Program: program, Data: data}
	}
	program, ok := ProgramFromBytes(init.Program.Unpack())
	if !ok {
		return nil, false
	}
	entrypoint, ok := program.Entrypoint(e.message.Kind)
	if !ok {
		return nil, false
	}
	vm := NewVM(program.Code(), int(entrypoint), init.Data, e.message, e)
	vm.MaxSteps = e.options.MaxSteps
	vm.StepHook = e.options.StepHook
	return vm, true
}

// run executes the environment's message and returns the resulting data
// register, or false if the VM could not be constructed.
func (e *Environment) run() (Block, bool) {
	vm, ok := e.getVM()
	if !ok {
		return Block{}, false
	}
	vm.Run()
	return vm.Data(), true
}

// runView executes the environment's message and returns the resulting
// operand stack, or false if the VM could not be constructed.
func (e *Environment) runView() ([]Value, bool) {
	vm, ok := e.getVM()
	if !ok {
		return nil, false
	}
	vm.Run()
	return vm.Stack(), true
}

// execute runs message against repository and recursively executes every
// message it emits, depth-first in emission order, building the resulting
// TransactionPart tree. It does not persist anything.
func execute(message Message, repository Repository, options ExecOptions) TransactionPart {
	env := NewEnvironment(message, repository, options)
	data, ok := env.run()
	if !ok {
		return NewMessagePart(message)
	}
	children := make([]TransactionPart, 0, len(env.order))
	for _, child := range env.order {
		children = append(children, execute(child, repository, options))
	}
	return NewStatePart(ContractState{Message: message, Data: data, Children: children})
}

// View runs message as a read-only query: no SEND it emits is ever
// executed, and its data register is discarded. It always returns a
// non-nil slice, empty if the VM could not be constructed.
func View(message Message, repository Repository, options ExecOptions) []Value {
	env := NewEnvironment(message, repository, options)
	stack, ok := env.runView()
	if !ok {
		return []Value{}
	}
	return stack
}

// StartTransaction executes message against repository, persists the
// resulting TransactionPart tree, and returns it.
func StartTransaction(message Message, repository Repository, options ExecOptions) TransactionPart {
	tx := execute(message, repository, options)
	repository.SaveTransaction(tx)
	return tx
}
