// Command tspec-example runs a few demonstration suites.
//
//	tspec-example run --verbose
//	tspec-example run --tags 'math && !slow'
//	tspec-example list
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rlch/tspec"
	"github.com/rlch/tspec/command"
	"github.com/rlch/tspec/runner"
)

func main() {
	cmd := command.New(
		command.Define("arithmetic", arithmetic),
		command.Define("ledger", ledger, tspec.WithDefaults(tspec.Overrides{
			Timeout: tspec.Ptr(2 * time.Second),
		})),
	)

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func arithmetic(s *tspec.ShouldScope) {
	math := tspec.Overrides{Tags: []tspec.Tag{"math"}}

	s.ShouldWith("add small numbers").Config(math, func(context.Context) error {
		if got := 2 + 2; got != 4 {
			return fmt.Errorf("2 + 2 = %d", got)
		}

		return nil
	})

	s.Group("parsing", func(s *tspec.ShouldScope) {
		for _, in := range []string{"1", "42", "-7"} {
			s.ShouldWith("parse " + in).Config(math, func(ctx context.Context) error {
				n, err := strconv.Atoi(in)
				if err != nil {
					return err
				}

				runner.Logf(ctx, "parsed %q as %d", in, n)

				return nil
			})
		}

		s.ShouldWith("reject garbage").Config(math, func(context.Context) error {
			if _, err := strconv.Atoi("forty"); err == nil {
				return errors.New("expected an error")
			}

			return nil
		})
	})

	s.ShouldWith("survive repeated sums").Config(tspec.Overrides{
		Invocations: tspec.Ptr(20),
		Threads:     tspec.Ptr(4),
		Tags:        []tspec.Tag{"math", "slow"},
	}, func(context.Context) error {
		sum := 0
		for i := range 1000 {
			sum += i
		}

		if sum != 499500 {
			return fmt.Errorf("sum = %d", sum)
		}

		return nil
	})
}

// account is a toy ledger exercised by the ledger suite.
type account struct {
	mu      sync.Mutex
	balance int
}

func (a *account) deposit(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance += n
}

func (a *account) withdraw(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > a.balance {
		return fmt.Errorf("insufficient funds: have %d, want %d", a.balance, n)
	}

	a.balance -= n

	return nil
}

type accountKey struct{}

// withAccount gives each invocation a fresh account funded with 100.
var withAccount = tspec.ExtensionFunc(func(ctx context.Context, _ *tspec.TestNode, next func(context.Context) error) error {
	acct := &account{}
	acct.deposit(100)

	return next(context.WithValue(ctx, accountKey{}, acct))
})

func accountFrom(ctx context.Context) *account {
	acct, _ := ctx.Value(accountKey{}).(*account)
	return acct
}

func ledger(s *tspec.ShouldScope) {
	funded := tspec.Overrides{Extensions: []tspec.Extension{withAccount}}

	s.Group("deposits", func(s *tspec.ShouldScope) {
		s.ShouldWith("credit the balance").Config(funded, func(ctx context.Context) error {
			acct := accountFrom(ctx)
			acct.deposit(50)

			if acct.balance != 150 {
				return fmt.Errorf("balance = %d, want 150", acct.balance)
			}

			return nil
		})
	})

	s.Group("withdrawals", func(s *tspec.ShouldScope) {
		s.ShouldWith("debit the balance").Config(funded, func(ctx context.Context) error {
			return accountFrom(ctx).withdraw(30)
		})

		s.ShouldWith("refuse overdrafts").Config(funded, func(ctx context.Context) error {
			if err := accountFrom(ctx).withdraw(1000); err == nil {
				return errors.New("overdraft allowed")
			}

			return nil
		})
	})

	s.ShouldWith("settle within the deadline").Config(tspec.Overrides{
		Timeout: tspec.Ptr(500 * time.Millisecond),
	}, func(ctx context.Context) error {
		select {
		case <-time.After(10 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	s.ShouldWith("reconcile with the bank").Config(tspec.Overrides{
		Enabled: tspec.Ptr(false),
	}, func(context.Context) error {
		return errors.New("no bank connection")
	})
}
