// Package fixture loads state fixtures for the binder tools. A fixture is a
// YAML document with plain values, computed getters written as expressions
// and event actions written as statements:
//
//	state:
//	  count: 0
//	  todos: [{text: milk, done: false}]
//	computed:
//	  double: "count * 2"
//	actions:
//	  increment: "count += 1"
//	  toggle: "item.done = !item.done"
//	  save:
//	    run: "saving = true"
//	    await: 50ms
//	    then: "saving = false"
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recera/binder/pkg/async"
	"github.com/recera/binder/pkg/expr"
	"github.com/recera/binder/pkg/scheduler"
)

// Fixture is a parsed state file
type Fixture struct {
	State    map[string]any    `yaml:"state"`
	Computed map[string]string `yaml:"computed"`
	Actions  map[string]Action `yaml:"actions"`
}

// Action is an event handler written as statements. Statements run with
// event, item and index bound. An action with Await returns a promise that
// settles once the delay has passed, after Then has run.
type Action struct {
	Run   string        `yaml:"run"`
	Await time.Duration `yaml:"await"`
	Then  string        `yaml:"then"`
}

// UnmarshalYAML accepts either a statement string or a mapping
func (a *Action) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		a.Run = n.Value
		return nil
	}
	type plain Action
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*a = Action(p)
	return nil
}

// Parse decodes a fixture and checks every expression and statement
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseBytes decodes a fixture from memory
func ParseBytes(data []byte) (*Fixture, error) {
	return Parse(bytes.NewReader(data))
}

// Load reads a fixture file
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	f, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *Fixture) check() error {
	for _, name := range sortedKeys(f.Computed) {
		if _, err := expr.Compile(f.Computed[name]); err != nil {
			return fmt.Errorf("fixture: computed %s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(f.Actions) {
		a := f.Actions[name]
		if strings.TrimSpace(a.Run) == "" && strings.TrimSpace(a.Then) == "" {
			return fmt.Errorf("fixture: action %s has no statements", name)
		}
		for _, src := range []string{a.Run, a.Then} {
			if strings.TrimSpace(src) == "" {
				continue
			}
			if _, err := expr.CompileStatements(src); err != nil {
				return fmt.Errorf("fixture: action %s: %w", name, err)
			}
		}
		if a.Await < 0 {
			return fmt.Errorf("fixture: action %s: negative await", name)
		}
		if _, dup := f.State[name]; dup {
			return fmt.Errorf("fixture: action %s shadows a state value", name)
		}
	}
	for name := range f.Computed {
		if _, dup := f.State[name]; dup {
			return fmt.Errorf("fixture: computed %s shadows a state value", name)
		}
	}
	return nil
}

// Names returns the keys the fixture defines, sorted
func (f *Fixture) Names() []string {
	var names []string
	names = append(names, sortedKeys(f.State)...)
	names = append(names, sortedKeys(f.Computed)...)
	names = append(names, sortedKeys(f.Actions)...)
	sort.Strings(names)
	return names
}

// Runtime turns fixture entries into live state. Computed getters and
// actions evaluate through Eval; delayed action tails run on Sched. With no
// Sched an action's tail runs before the handler returns, and the await is
// skipped.
type Runtime struct {
	Eval  *expr.Evaluator
	Sched scheduler.Scheduler
}

// State builds a fresh state record from f
func (rt Runtime) State(f *Fixture) expr.Record {
	rec := expr.Record{}
	rt.Apply(f, rec)
	return rec
}

// Apply writes f's entries into rec. Existing values are overwritten, so
// everything holding rec observes the reload.
func (rt Runtime) Apply(f *Fixture, rec expr.Context) {
	ev := rt.Eval
	if ev == nil {
		ev = expr.NewEvaluator()
	}
	sched := rt.Sched
	for k, v := range f.State {
		rec.Set(k, normalize(v))
	}
	for k, src := range f.Computed {
		rec.Set(k, expr.Getter0(func(this expr.Context) any {
			return ev.Evaluate(src, this)
		}))
	}
	for k, a := range f.Actions {
		rec.Set(k, a.handler(ev, sched))
	}
}

func (a Action) handler(ev *expr.Evaluator, sched scheduler.Scheduler) expr.Func {
	return func(this expr.Context, args []any) (any, error) {
		scope := expr.NewOverlay(this, locals(args))
		if strings.TrimSpace(a.Run) != "" {
			if _, err := ev.Exec(a.Run, scope); err != nil {
				return nil, err
			}
		}
		if a.Await == 0 && a.Then == "" {
			return nil, nil
		}
		p := async.New()
		tail := func() {
			if strings.TrimSpace(a.Then) != "" {
				if _, err := ev.Exec(a.Then, scope); err != nil {
					p.Reject(err)
					return
				}
			}
			p.Resolve(nil)
		}
		if sched == nil {
			tail()
			return p, nil
		}
		sched.AfterFunc(a.Await, tail)
		return p, nil
	}
}

// locals binds the handler arguments: (event) for plain elements and
// (event, item, index) inside loops.
func locals(args []any) expr.Record {
	l := expr.Record{"event": nil}
	if len(args) > 0 {
		l["event"] = args[0]
	}
	if len(args) > 2 {
		l["item"] = args[1]
		l["index"] = args[2]
	}
	return l
}

// normalize converts decoded YAML into the shapes expressions work with
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case int:
		return int64(t)
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
