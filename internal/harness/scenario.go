package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

// Backends a scenario can run on.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// OutcomeOK is the outcome of a step that succeeded.
const OutcomeOK = "ok"

// Scenario is a registrar conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the state store. Defaults to memory.
	Backend string `yaml:"backend,omitempty"`

	// Config is CUE source unified with the registrar config schema.
	// Empty means defaults.
	Config string `yaml:"config,omitempty"`

	// Flow is the sequence of calls.
	Flow []Step `yaml:"flow"`

	// Assertions are checked after the flow completes.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one registrar call.
type Step struct {
	// At sets the clock before the call. Omitted keeps the previous time.
	At *uint64 `yaml:"at,omitempty"`

	// Caller sets the identity. Omitted keeps the previous caller.
	Caller string `yaml:"caller,omitempty"`

	// Invoke is the operation, e.g. "reveal_bid".
	Invoke string `yaml:"invoke"`

	Args Args `yaml:"args"`

	// Expect is "ok" (the default) or an error kind such as "InvalidRenew".
	Expect string `yaml:"expect,omitempty"`
}

// Args are the operands of a step. Which fields are required depends on
// the operation.
type Args struct {
	Name       string `yaml:"name,omitempty"`
	Salt       string `yaml:"salt,omitempty"`
	Commitment string `yaml:"commitment,omitempty"`
	Amount     uint64 `yaml:"amount,omitempty"`
	Retention  uint64 `yaml:"retention,omitempty"`
}

// Assertion validates the final state or the event trace.
type Assertion struct {
	// Type is one of entry, bid, event_order, event_count.
	Type string `yaml:"type"`

	// Name is the label of the entry (entry) or of the pledge's name (bid).
	Name string `yaml:"name,omitempty"`

	// Salt, Commitment and Bidder locate a pledge (bid).
	Salt       string `yaml:"salt,omitempty"`
	Commitment string `yaml:"commitment,omitempty"`
	Bidder     string `yaml:"bidder,omitempty"`

	// Absent asserts that the entry or pledge does not exist.
	Absent bool `yaml:"absent,omitempty"`

	// Expect holds the expected fields (entry, bid). Subset match.
	Expect *Expect `yaml:"expect,omitempty"`

	// Events is the expected sequence of event kinds (event_order).
	Events []string `yaml:"events,omitempty"`

	// Event and Count are used by event_count.
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Expect lists the fields to compare. Nil fields are not checked.
type Expect struct {
	Mode         string  `yaml:"mode,omitempty"`
	Owner        *string `yaml:"owner,omitempty"`
	HighestBid   *uint64 `yaml:"highest_bid,omitempty"`
	RegisteredAt *uint64 `yaml:"registered_at,omitempty"`
	Amount       *uint64 `yaml:"amount,omitempty"`
}

// Assertion type constants.
const (
	AssertEntry      = "entry"
	AssertBid        = "bid"
	AssertEventOrder = "event_order"
	AssertEventCount = "event_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	var now uint64
	caller := ""
	for i := range s.Flow {
		step := &s.Flow[i]
		if step.At != nil {
			if *step.At < now {
				return fmt.Errorf("flow[%d]: at %d is before %d", i, *step.At, now)
			}
			now = *step.At
		}
		if step.Caller != "" {
			caller = step.Caller
		}
		if caller == "" {
			return fmt.Errorf("flow[%d]: caller is required", i)
		}
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step *Step) error {
	a := step.Args
	switch step.Invoke {
	case registrar.OpStartAuction, registrar.OpFinalizeAuction, registrar.OpRenew, registrar.OpExpire:
		if err := validateName(a.Name); err != nil {
			return err
		}
	case registrar.OpRevealBid:
		if err := validateName(a.Name); err != nil {
			return err
		}
		if a.Salt == "" {
			return fmt.Errorf("salt is required for %s", step.Invoke)
		}
	case registrar.OpNewBid, registrar.OpCancelBid:
		if err := validateCommitmentArgs(a.Name, a.Salt, a.Commitment); err != nil {
			return err
		}
	case registrar.OpSweep:
	case "":
		return fmt.Errorf("invoke is required")
	default:
		return fmt.Errorf("unknown operation %q", step.Invoke)
	}

	if step.Expect != "" && step.Expect != OutcomeOK {
		if _, err := registrar.ParseKind(step.Expect); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertEntry:
		if err := validateName(a.Name); err != nil {
			return err
		}
		if a.Expect != nil && a.Expect.Mode != "" {
			if _, err := ir.ParseMode(a.Expect.Mode); err != nil {
				return err
			}
		}
	case AssertBid:
		if err := validateCommitmentArgs(a.Name, a.Salt, a.Commitment); err != nil {
			return err
		}
		if a.Bidder == "" {
			return fmt.Errorf("bidder is required for bid")
		}
	case AssertEventOrder:
		if a.Events == nil {
			return fmt.Errorf("events list is required for event_order")
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("event is required for event_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	if !a.Absent && a.Expect == nil && (a.Type == AssertEntry || a.Type == AssertBid) {
		return fmt.Errorf("expect or absent is required for %s", a.Type)
	}
	return nil
}

func validateName(label string) error {
	if label == "" {
		return fmt.Errorf("name is required")
	}
	_, err := commit.NameHash(label)
	return err
}

func validateCommitmentArgs(name, salt, commitment string) error {
	if commitment != "" {
		_, err := ir.ParseHash(commitment)
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if salt == "" {
		return fmt.Errorf("salt or commitment is required")
	}
	return nil
}
