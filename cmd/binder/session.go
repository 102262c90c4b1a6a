package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/recera/binder/internal/fixture"
	"github.com/recera/binder/pkg/binder"
	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/expr"
	"github.com/recera/binder/pkg/scheduler"
)

// session is a template bound to the state of a fixture
type session struct {
	templatePath string
	statePath    string

	doc     *dom.Document
	binder  *binder.Binder
	state   expr.Record
	runtime fixture.Runtime
}

// openSession parses the template and the fixture and binds them. Tasks
// deferred by the binder and by fixture actions run on sched.
func (a *app) openSession(templatePath, statePath string, sched scheduler.Scheduler) (*session, error) {
	s := &session{templatePath: templatePath, statePath: statePath}

	ev := expr.NewEvaluator(expr.WithLogger(a.logger))
	s.runtime = fixture.Runtime{Eval: ev, Sched: sched}
	s.state = expr.Record{}
	if statePath != "" {
		f, err := fixture.Load(statePath)
		if err != nil {
			return nil, err
		}
		s.runtime.Apply(f, s.state)
	}

	if err := s.parseTemplate(); err != nil {
		return nil, err
	}
	b, err := binder.New(s.doc, a.cfg.Binder.Target, s.state,
		binder.WithLogger(a.logger),
		binder.WithScheduler(sched),
		binder.WithEvaluator(ev),
		binder.WithAutoUpdate(a.cfg.Binder.AutoUpdate),
		binder.WithTransitionClass(a.cfg.Binder.TransitionClass),
		binder.WithTransitionTimeout(a.cfg.Binder.TransitionTimeout),
	)
	if err != nil {
		return nil, err
	}
	if err := b.Bind(); err != nil {
		return nil, err
	}
	s.binder = b
	a.logger.Debug("session bound", "template", templatePath, "state", statePath, "bindings", fmt.Sprintf("%+v", b.Counts()))
	return s, nil
}

func (s *session) parseTemplate() error {
	f, err := os.Open(s.templatePath)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()
	doc, err := dom.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", filepath.Base(s.templatePath), err)
	}
	s.doc = doc
	return nil
}

// reloadState re-reads the fixture into the bound state record and updates
func (s *session) reloadState() error {
	if s.statePath == "" {
		return nil
	}
	f, err := fixture.Load(s.statePath)
	if err != nil {
		return err
	}
	s.runtime.Apply(f, s.state)
	return s.binder.Update()
}

// markup returns the bound target's markup
func (s *session) markup() string {
	return s.binder.Root().OuterHTML()
}

func (s *session) close() {
	_ = s.binder.Destroy()
}
