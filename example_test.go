package botflow_test

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/pkg/adapters/console"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/dsl"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/muesli/termenv"
)

func Example() {
	ctx := context.Background()

	b := dsl.New("greeter")
	b.Block("signup").Triggers("sign up").
		Text("Happy to have you.").
		AskThen("What should I call you?", "name", "done")
	b.Block("done").Text("Nice to meet you, {{name}}!")

	repo, err := b.Build(ctx)
	if err != nil {
		panic(err)
	}
	bot, _ := repo.GetBot(ctx, "greeter")

	engine := botflow.New(
		repo,
		session.NewManager(memory.NewStore()),
		console.New(os.Stdout, console.WithColorProfile(termenv.Ascii)),
	)

	engine.ExecuteFlow(ctx, *bot, "ana", "I want to sign up", "console")
	res := engine.ExecuteFlow(ctx, *bot, "ana", "Ana", "console")
	fmt.Println("success:", res.Success)

	// Output:
	// Happy to have you.
	// What should I call you?
	// Nice to meet you, Ana!
	// success: true
}
