package tspec_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/tspec"
)

func noop(context.Context) error { return nil }

func names(nodes []*tspec.TestNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}

	return out
}

func TestNew_EmptyBody(t *testing.T) {
	spec, err := tspec.New(nil)
	require.NoError(t, err)

	assert.Empty(t, spec.Nodes())
	assert.Equal(t, tspec.DefaultTestCaseConfig(), spec.DefaultConfig())
}

func TestNew_BodyRunsOnceEagerly(t *testing.T) {
	calls := 0

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		calls++
		s.Should("work", noop)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"should work"}, names(spec.Nodes()))
}

func TestShould_UsesSpecDefault(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("x", noop)
	}, tspec.WithDefaults(tspec.Overrides{
		Timeout: tspec.Ptr(time.Minute),
		Tags:    []tspec.Tag{"suite"},
	}))
	require.NoError(t, err)

	leaf := spec.Nodes()[0]
	if diff := cmp.Diff(spec.DefaultConfig(), leaf.Config); diff != "" {
		t.Errorf("leaf config mismatch (-want +got):\n%s", diff)
	}
}

func TestShouldWith_ConfigOverridesTimeoutOnly(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.ShouldWith("work").Config(tspec.Overrides{Timeout: tspec.Ptr(5 * time.Second)}, noop)
	})
	require.NoError(t, err)

	leaf := spec.Nodes()[0]
	assert.Equal(t, "should work", leaf.Name)

	want := tspec.DefaultTestCaseConfig()
	want.Timeout = 5 * time.Second

	if diff := cmp.Diff(want, leaf.Config); diff != "" {
		t.Errorf("leaf config mismatch (-want +got):\n%s", diff)
	}
}

func TestShouldWith_EmptyOverridesEqualsShould(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("plain", noop)
		s.ShouldWith("configured").Config(tspec.Overrides{}, noop)
	})
	require.NoError(t, err)

	nodes := spec.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, nodes[0].Config, nodes[1].Config)
}

func TestShouldWith_DisabledDoesNotAffectSiblings(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("a", noop)
		s.ShouldWith("b").Config(tspec.Overrides{Enabled: tspec.Ptr(false)}, noop)
		s.Should("c", noop)
	})
	require.NoError(t, err)

	nodes := spec.Nodes()
	require.Len(t, nodes, 3)
	assert.True(t, nodes[0].Config.Enabled)
	assert.False(t, nodes[1].Config.Enabled)
	assert.True(t, nodes[2].Config.Enabled)
}

func TestGroup_DeferredUntilExpanded(t *testing.T) {
	built := 0

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			built++
			s.Should("inner", noop)
		})
	})
	require.NoError(t, err)

	roots := spec.Nodes()
	require.Len(t, roots, 1)

	outer := roots[0]
	assert.Equal(t, "outer", outer.Name)
	assert.True(t, outer.IsBranch())
	assert.False(t, outer.IsLeaf())
	assert.False(t, outer.Expanded())
	assert.Equal(t, 0, built)

	tc, err := outer.Expand()
	require.NoError(t, err)

	children := tc.Nodes()
	require.Len(t, children, 1)
	assert.Equal(t, "should inner", children[0].Name)
	assert.Same(t, outer, children[0].Parent)
	assert.Same(t, outer, tc.Node())
	assert.Equal(t, []string{"outer", "should inner"}, children[0].Path())
	assert.Equal(t, 1, built)

	// Not a root sibling.
	assert.Equal(t, []string{"outer"}, names(spec.Nodes()))
}

func TestExpand_Idempotent(t *testing.T) {
	built := 0

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			built++
			s.Should("inner", noop)
		})
	})
	require.NoError(t, err)

	outer := spec.Nodes()[0]

	first, err := outer.Expand()
	require.NoError(t, err)

	second, err := outer.Expand()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, second.Nodes(), 1)
	assert.Equal(t, 1, built)
}

func TestRebuild_RunsBuilderAgain(t *testing.T) {
	built := 0

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			built++
			s.Should("inner", noop)
		})
	})
	require.NoError(t, err)

	outer := spec.Nodes()[0]

	first, err := outer.Expand()
	require.NoError(t, err)

	rebuilt, err := outer.Rebuild()
	require.NoError(t, err)

	assert.NotSame(t, first, rebuilt)
	assert.Len(t, rebuilt.Nodes(), 1)
	assert.Equal(t, 2, built)
}

func TestDuplicateNamesRetainedInOrder(t *testing.T) {
	var first, second bool

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("branch", func(s *tspec.ShouldScope) {
			s.Should("same", func(context.Context) error { first = true; return nil })
			s.Should("same", func(context.Context) error { second = true; return nil })
		})
	})
	require.NoError(t, err)

	tc, err := spec.Nodes()[0].Expand()
	require.NoError(t, err)

	nodes := tc.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, []string{"should same", "should same"}, names(nodes))
	assert.NotSame(t, nodes[0], nodes[1])

	require.NoError(t, nodes[0].Run(context.Background()))
	assert.True(t, first)
	assert.False(t, second)

	require.NoError(t, nodes[1].Run(context.Background()))
	assert.True(t, second)
}

func TestNestedConfig_NoIntermediateInheritance(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			s.ShouldWith("configured sibling").Config(tspec.Overrides{
				Timeout: tspec.Ptr(time.Hour),
				Tags:    []tspec.Tag{"sibling"},
			}, noop)

			s.Group("middle", func(s *tspec.ShouldScope) {
				s.ShouldWith("deep").Config(tspec.Overrides{Invocations: tspec.Ptr(3)}, noop)
			})
		})
	}, tspec.WithDefaults(tspec.Overrides{Tags: []tspec.Tag{"suite"}}))
	require.NoError(t, err)

	leaves, err := tspec.Leaves(spec)
	require.NoError(t, err)
	require.Len(t, leaves, 2)

	deep := leaves[1]
	assert.Equal(t, []string{"outer", "middle", "should deep"}, deep.Path())

	want := tspec.Resolve(spec.DefaultConfig(), tspec.Overrides{Invocations: tspec.Ptr(3)})
	if diff := cmp.Diff(want, deep.Config); diff != "" {
		t.Errorf("deep leaf config mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PropagatesErrorUnmodified(t *testing.T) {
	boom := errors.New("boom")

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("fail", func(context.Context) error { return boom })
		s.Group("branch", func(*tspec.ShouldScope) {})
	})
	require.NoError(t, err)

	nodes := spec.Nodes()
	assert.Same(t, boom, nodes[0].Run(context.Background()))

	require.ErrorIs(t, nodes[1].Run(context.Background()), tspec.ErrNotLeaf)

	_, err = nodes[0].Expand()
	require.ErrorIs(t, err, tspec.ErrNotBranch)
}

func TestNew_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    func(s *tspec.ShouldScope)
		opts    []tspec.Option
		wantErr []error
	}{
		{
			name:    "nil leaf body",
			body:    func(s *tspec.ShouldScope) { s.Should("x", nil) },
			wantErr: []error{tspec.ErrNilBody},
		},
		{
			name:    "nil group body",
			body:    func(s *tspec.ShouldScope) { s.Group("x", nil) },
			wantErr: []error{tspec.ErrNilBuilder},
		},
		{
			name: "threads exceed invocations",
			body: func(s *tspec.ShouldScope) {
				s.ShouldWith("x").Config(tspec.Overrides{Threads: tspec.Ptr(4)}, noop)
			},
			wantErr: []error{tspec.ErrThreadsExceedInvocations},
		},
		{
			name: "multiple errors joined",
			body: func(s *tspec.ShouldScope) {
				s.Should("a", nil)
				s.ShouldWith("b").Config(tspec.Overrides{Invocations: tspec.Ptr(-1)}, noop)
			},
			wantErr: []error{tspec.ErrNilBody, tspec.ErrInvalidInvocations},
		},
		{
			name:    "invalid default config",
			opts:    []tspec.Option{tspec.WithDefaults(tspec.Overrides{Threads: tspec.Ptr(0)})},
			wantErr: []error{tspec.ErrInvalidThreads},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tspec.New(tt.body, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, spec)

			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestExpand_ReportsNestedConstructionErrors(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			s.Should("ok", noop)
			s.Should("broken", nil)
		})
	})
	require.NoError(t, err, "nested errors surface only on expansion")

	tc, err := spec.Nodes()[0].Expand()
	require.ErrorIs(t, err, tspec.ErrNilBody)
	assert.ErrorContains(t, err, `"outer/should broken"`)
	assert.Equal(t, []string{"should ok"}, names(tc.Nodes()))
}

func TestTestContext_RegisterDirectly(t *testing.T) {
	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		tc := s.Context()
		cfg := tc.DefaultConfig()
		cfg.Tags = tspec.NewTags("raw")

		tc.RegisterTestCase("raw leaf", tc.Spec(), noop, cfg)
		tc.RegisterGroup("raw branch", tc.Spec(), func(child *tspec.TestContext) {
			child.RegisterTestCase("child", child.Spec(), noop, child.DefaultConfig())
		}, tc.DefaultConfig())
	})
	require.NoError(t, err)

	nodes := spec.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, tspec.Tags{"raw"}, nodes[0].Config.Tags)
	assert.Same(t, spec, nodes[0].Spec)
	assert.Nil(t, nodes[0].Parent)

	tc, err := nodes[1].Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{"child"}, names(tc.Nodes()))
}

func TestNew_LogsRegistrations(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	_, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("log me", noop)
	}, tspec.WithLogger(zap.New(core)), tspec.WithName("logged"))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("registered test node").Len())
	assert.Equal(t, 1, logs.FilterMessage("constructed spec").Len())
}

func TestExpand_ConstructionErrorPersists(t *testing.T) {
	spec := tspec.MustNew(func(s *tspec.ShouldScope) {
		s.Group("outer", func(s *tspec.ShouldScope) {
			s.Should("broken", nil)
		})
	})

	outer := spec.Nodes()[0]

	for i := range 2 {
		_, err := outer.Expand()
		require.ErrorIs(t, err, tspec.ErrNilBody, "expand #%d", i+1)
	}

	_, err := tspec.Leaves(spec)
	require.ErrorIs(t, err, tspec.ErrNilBody)
}

func TestSpec_SealedAfterConstruction(t *testing.T) {
	var inner *tspec.ShouldScope

	spec := tspec.MustNew(func(s *tspec.ShouldScope) {
		s.Should("a", noop)
		s.Group("g", func(s *tspec.ShouldScope) {
			inner = s
			s.Should("b", noop)
		})
	})

	node := spec.Root().RegisterTestCase("late", spec, noop, spec.DefaultConfig())
	assert.Nil(t, node)

	tspec.NewShouldScope(spec.Root()).Should("later", noop)

	assert.Equal(t, []string{"should a", "g"}, names(spec.Nodes()))
	require.ErrorIs(t, spec.Root().Err(), tspec.ErrSealed)

	_, err := tspec.Leaves(spec)
	require.ErrorIs(t, err, tspec.ErrSealed)

	g := spec.Nodes()[1]
	tc, err := g.Expand()
	require.NoError(t, err)

	inner.Should("too late", noop)

	assert.Equal(t, []string{"should b"}, names(tc.Nodes()))

	_, err = g.Expand()
	require.ErrorIs(t, err, tspec.ErrSealed)
	assert.ErrorContains(t, err, `"g/should too late"`)
}

func TestWithDefaultConfig_DedupesTags(t *testing.T) {
	cfg := tspec.DefaultTestCaseConfig()
	cfg.Tags = tspec.Tags{"db", "slow", "db"}

	spec, err := tspec.New(func(s *tspec.ShouldScope) {
		s.Should("x", noop)
	}, tspec.WithDefaultConfig(cfg))
	require.NoError(t, err)

	assert.Equal(t, tspec.Tags{"db", "slow"}, spec.DefaultConfig().Tags)
	assert.Equal(t, tspec.Tags{"db", "slow"}, spec.Nodes()[0].Config.Tags)
}
