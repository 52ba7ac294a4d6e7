/*
Package botflow executes chatbot conversations authored as blocks of cards or as legacy
node graphs.

Each inbound message is one turn. The Engine loads the (bot, sender) session, decides
which content handles the message, runs it through the gateway and persists where the
conversation paused:

 1. a session paused on a userInput card resumes that block;
 2. otherwise the first enabled block whose trigger matches the message runs;
 3. otherwise the bot's default-answer block runs (created on first use);
 4. otherwise legacy flows are consulted: the paused node, a triggered flow, the default flow.

# Usage

	repo := memory.NewRepository()
	sessions := session.NewManager(memory.NewStore())
	eng := botflow.New(repo, sessions, console.New(os.Stdout))

	res := eng.ExecuteFlow(ctx, bot, "user-42", "hello", "console")
	if !res.Success {
		log.Println(res.Error)
	}

Turns of the same session must not overlap. The Engine serializes them with the
session manager's lock; pkg/dispatch additionally keeps them in arrival order.
*/
package botflow
