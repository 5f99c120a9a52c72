package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/workshop-backend/internal/app"
	"github.com/yungbote/workshop-backend/internal/platform/dbctx"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// grant_credits tops up workshop credits for support and billing reconciliation.
func main() {
	var users idList
	var amount int
	var dryRun bool
	flag.Var(&users, "user", "user_id to credit (repeatable)")
	flag.IntVar(&amount, "amount", 1, "credits to add per user")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned grants without writing")
	flag.Parse()

	if amount <= 0 {
		fmt.Println("amount must be positive")
		os.Exit(1)
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, s := range users {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil || id == uuid.Nil {
			fmt.Printf("skipping invalid user_id %q\n", s)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		fmt.Println("no valid user_id values provided")
		return
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	dbc := dbctx.Context{Ctx: ctx}
	granted := 0
	for _, id := range ids {
		if dryRun {
			fmt.Printf("[dry-run] grant %d credits to user_id=%s\n", amount, id)
			continue
		}
		if err := application.Repos.UserCredit.Grant(dbc, id, amount); err != nil {
			fmt.Printf("grant failed for user %s: %v\n", id, err)
			continue
		}
		balance, err := application.Repos.UserCredit.GetBalance(dbc, id)
		if err != nil {
			fmt.Printf("granted to %s; balance read failed: %v\n", id, err)
		} else {
			fmt.Printf("granted %d credits to user_id=%s balance=%d\n", amount, id, balance)
		}
		granted++
	}
	fmt.Printf("done; granted=%d\n", granted)
}
