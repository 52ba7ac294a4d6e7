/*
Package dsl builds bots in Go instead of YAML.

The builders produce the same block and flow documents the file loader reads, and
Build compiles them so a typo surfaces before the first conversation.

Example usage:

	b := dsl.New("shop").Name("Shop")

	b.Block("welcome").Welcome().Triggers("hi").
		Text("Hello!").
		QuickReplies("What now?", dsl.Reply("Order", "order"))

	b.Block("order").Triggers("order").
		AskThen("Your email?", "email", "thanks")

	b.Block("thanks").Text("Thanks {{email}}!")

	repo, err := b.Build(ctx)
	// ... pass repo to botflow.New(...)
*/
package dsl
