package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBlock_ThreeTextsEndsIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "b1", `[{"type":"text","text":"one"},{"type":"text","text":"two"},{"type":"text","text":"three"}]`)

	turn := f.turn("hi")
	require.NoError(t, f.exec.RunBlock(ctx, turn, f.load(t, "b1")))

	assert.Equal(t, []string{"one", "two", "three"}, f.texts())
	assert.Nil(t, f.session.CurrentBlockID)
	assert.Equal(t, 0, f.session.CurrentCardIndex)

	w := &writer{}
	require.NoError(t, turn.Commit(ctx, w))
	assert.Equal(t, 1, w.blockCalls)
	assert.Nil(t, w.blockID)
	assert.Len(t, f.journal.Messages(), 3, "each outbound card is logged")
}

func TestRunBlock_UserInputSuspendsAtIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "b1", `[
		{"type":"text","text":"Hello {{name}}"},
		{"type":"userInput","prompt":"Your email, {{name}}?","variableName":"email"},
		{"type":"text","text":"Got {{email}}"}
	]`)
	f.session.Context.Set("name", "Ana")

	turn := f.turn("start")
	require.NoError(t, f.exec.RunBlock(ctx, turn, f.load(t, "b1")))

	assert.Equal(t, []string{"Hello Ana", "Your email, Ana?"}, f.texts())
	require.NotNil(t, f.session.CurrentBlockID)
	assert.Equal(t, "b1", *f.session.CurrentBlockID)
	assert.Equal(t, 1, f.session.CurrentCardIndex)
	assert.Nil(t, f.session.CurrentNodeID)

	w := &writer{}
	require.NoError(t, turn.Commit(ctx, w))
	require.NotNil(t, w.blockID)
	assert.Equal(t, "b1", *w.blockID)
	assert.Equal(t, 1, w.index)

	// next turn answers and continues at index+1
	require.NoError(t, f.exec.ResumeBlock(ctx, f.turn("a@b.com")))
	assert.Equal(t, []string{"Got a@b.com"}, f.texts())
	assert.Nil(t, f.session.CurrentBlockID)
	email, _ := f.session.Context.Get("email")
	assert.Equal(t, "a@b.com", email)
}

func TestResumeBlock_NextBlockID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "B1", `[{"type":"userInput","prompt":"Email?","variableName":"email","nextBlockId":"B2"},{"type":"text","text":"never"}]`, "subscribe")
	f.block(t, "B2", `[{"type":"text","text":"Thanks {{email}}"},{"type":"userInput","prompt":"Name?","variableName":"name"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("subscribe"), f.load(t, "B1")))
	assert.Equal(t, []string{"Email?"}, f.texts())
	assert.Equal(t, "B1", *f.session.CurrentBlockID)
	assert.Equal(t, 0, f.session.CurrentCardIndex)

	require.NoError(t, f.exec.ResumeBlock(ctx, f.turn("a@b.com")))
	assert.Equal(t, []string{"Thanks a@b.com", "Name?"}, f.texts())
	assert.Equal(t, "B2", *f.session.CurrentBlockID)
	assert.Equal(t, 1, f.session.CurrentCardIndex)
}

func TestResumeBlock_EscapesAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "b1", `[{"type":"userInput","prompt":"?","variableName":"answer"},{"type":"text","text":"You said {{answer}}"}]`)
	f.session.Context.Set("secret", "s3cr3t")

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("go"), f.load(t, "b1")))
	f.texts()
	require.NoError(t, f.exec.ResumeBlock(ctx, f.turn("{{secret}}")))

	texts := f.texts()
	require.Len(t, texts, 1)
	assert.NotContains(t, texts[0], "s3cr3t")
}

func TestResumeBlock_EmptyInputRepromptsWithoutAdvancing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "b1", `[{"type":"userInput","prompt":"Email?","variableName":"email"},{"type":"text","text":"done"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("go"), f.load(t, "b1")))
	f.texts()

	turn := f.turn("   ")
	require.NoError(t, f.exec.ResumeBlock(ctx, turn))
	assert.Equal(t, []string{"Email?"}, f.texts())
	assert.Equal(t, 0, f.session.CurrentCardIndex)
	assert.True(t, turn.Dirty())
}

func TestResumeBlock_StalePointer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "b1", `[{"type":"text","text":"not an input"}]`)

	cases := map[string]func(){
		"missing block":   func() { f.session.SetBlockPointer(domain.StringPtr("ghost"), 0) },
		"index too large": func() { f.session.SetBlockPointer(domain.StringPtr("b1"), 5) },
		"not userInput":   func() { f.session.SetBlockPointer(domain.StringPtr("b1"), 0) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			setup()
			err := f.exec.ResumeBlock(ctx, f.turn("x"))
			assert.ErrorIs(t, err, runtime.ErrStalePointer)
		})
	}
}

func TestGoToBlock_TextOnlyTargetEndsIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "a", `[{"type":"text","text":"from a"},{"type":"goToBlock","blockId":"b"},{"type":"text","text":"unreachable"}]`)
	f.block(t, "b", `[{"type":"text","text":"in b"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "a")))
	assert.Equal(t, []string{"from a", "in b"}, f.texts())
	assert.Nil(t, f.session.CurrentBlockID)
	assert.Nil(t, f.session.CurrentNodeID)
}

func TestGoToBlock_CycleIsStopped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "a", `[{"type":"text","text":"a"},{"type":"goToBlock","blockId":"b"}]`)
	f.block(t, "b", `[{"type":"text","text":"b"},{"type":"goToBlock","blockId":"a"}]`)

	err := f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "a"))
	var limit *domain.ExecutionLimitError
	require.True(t, errors.As(err, &limit), "expected ExecutionLimitError, got %v", err)
	assert.Equal(t, []string{"a", "b"}, f.texts())
}

func TestRunBlock_LongBlockFitsBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cards := make([]string, runtime.DefaultStepLimit)
	for i := range cards {
		cards[i] = fmt.Sprintf(`{"type":"text","text":"line %d"}`, i)
	}
	f.block(t, "long", "["+strings.Join(cards, ",")+"]")

	turn := f.turn("x")
	require.NoError(t, f.exec.RunBlock(ctx, turn, f.load(t, "long")))
	texts := f.texts()
	require.Len(t, texts, runtime.DefaultStepLimit)
	assert.Equal(t, fmt.Sprintf("line %d", runtime.DefaultStepLimit-1), texts[len(texts)-1])
	assert.Nil(t, f.session.CurrentBlockID)
	assert.Equal(t, 0, turn.Steps(), "plain cards are free")
}

func TestGoToBlock_ChainSpendsBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.block(t, fmt.Sprintf("b%d", i), fmt.Sprintf(`[{"type":"text","text":"b%d"},{"type":"goToBlock","blockId":"b%d"}]`, i, i+1))
	}
	f.block(t, "b4", `[{"type":"text","text":"b4"}]`)

	turn := runtime.NewTurn("turn", domain.Bot{ID: testBot}, f.session, "x", 2, nil)
	err := f.exec.RunBlock(ctx, turn, f.load(t, "b0"))
	var limit *domain.ExecutionLimitError
	require.True(t, errors.As(err, &limit), "expected ExecutionLimitError, got %v", err)
	assert.Equal(t, 2, limit.Limit)
	assert.Equal(t, []string{"b0", "b1", "b2"}, f.texts())
}

func TestGoToBlock_MissingTarget(t *testing.T) {
	f := newFixture(t)
	f.block(t, "a", `[{"type":"goToBlock","blockId":"ghost"}]`)

	err := f.exec.RunBlock(context.Background(), f.turn("x"), f.load(t, "a"))
	var die *domain.DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestRunBlock_LoopAcrossUserInputIsAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.block(t, "ask", `[{"type":"userInput","prompt":"Again?","variableName":"v"},{"type":"goToBlock","blockId":"ask"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "ask")))
	require.NoError(t, f.exec.ResumeBlock(ctx, f.turn("1")))
	require.NoError(t, f.exec.ResumeBlock(ctx, f.turn("2")))
	assert.Equal(t, []string{"Again?", "Again?", "Again?"}, f.texts())
	assert.Equal(t, "ask", *f.session.CurrentBlockID)
}

func TestRunBlock_DelayAndTyping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, runtime.WithMaxDelay(2*time.Second))
	f.block(t, "b", `[{"type":"delay","seconds":1.5,"showTyping":true},{"type":"delay","seconds":30},{"type":"text","text":"done"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "b")))

	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 2 * time.Second}, f.slept, "long delays are capped")
	msgs := f.gateway.For(testSender)
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.TypingIndicator{On: true}, msgs[0])
	assert.Equal(t, domain.TypingIndicator{On: false}, msgs[1])
	assert.Equal(t, domain.TextMessage{Text: "done"}, msgs[2])
}

func TestRunBlock_DelayIsUncappedByDefault(t *testing.T) {
	f := newFixture(t)
	f.block(t, "b", `[{"type":"delay","seconds":30},{"type":"text","text":"done"}]`)

	require.NoError(t, f.exec.RunBlock(context.Background(), f.turn("x"), f.load(t, "b")))
	assert.Equal(t, []time.Duration{30 * time.Second}, f.slept)
	assert.Equal(t, []string{"done"}, f.texts())
}

func TestRunBlock_CanceledDelayAbortsTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)
	f.block(t, "b", `[{"type":"delay","seconds":1},{"type":"text","text":"late"}]`)
	blk := f.load(t, "b")
	cancel()

	turn := f.turn("x")
	err := f.exec.RunBlock(ctx, turn, blk)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, turn.Dirty())
	assert.Empty(t, f.texts())
}

func TestRunBlock_DeliveryFailureContinues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gateway.Fail = func(msg domain.Outbound) error {
		if tm, ok := msg.(domain.TextMessage); ok && tm.Text == "two" {
			return errors.New("platform down")
		}
		return nil
	}
	f.block(t, "b", `[{"type":"text","text":"one"},{"type":"text","text":"two"},{"type":"text","text":"three"}]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "b")))
	assert.Equal(t, []string{"one", "three"}, f.texts())
	require.Len(t, f.failures, 1)
	var tde *domain.TransientDeliveryError
	assert.True(t, errors.As(f.failures[0].Err, &tde))
	assert.Len(t, f.journal.Messages(), 2, "failed deliveries are not logged as sent")
}

func TestRunBlock_RichCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.session.Context.Set("name", "Ana")
	f.block(t, "b", `[
		{"type":"image","url":"https://img/{{name}}.png","caption":"Hi {{name}}"},
		{"type":"gallery","title":"For {{name}}","buttons":[{"title":"Open","url":"https://x"},{"title":"Next","blockId":"b2"}]},
		{"type":"quickReply","text":"Pick","buttons":[{"title":"Yes","blockId":"yes-block"},{"title":"No"}]}
	]`)

	require.NoError(t, f.exec.RunBlock(ctx, f.turn("x"), f.load(t, "b")))

	msgs := f.gateway.For(testSender)
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.ImageMessage{URL: "https://img/Ana.png"}, msgs[0])
	assert.Equal(t, domain.TextMessage{Text: "Hi Ana"}, msgs[1])
	card := msgs[2].(domain.CardMessage)
	assert.Equal(t, "For Ana", card.Title)
	assert.Equal(t, domain.ButtonBlock, card.Buttons[1].Kind)
	qr := msgs[3].(domain.QuickReplyMessage)
	assert.Equal(t, []domain.QuickReply{{Title: "Yes", Payload: "yes-block"}, {Title: "No", Payload: "No"}}, qr.Replies)

	require.NotEmpty(t, f.steps)
	assert.Equal(t, "block", f.steps[0].Interpreter)
	assert.Equal(t, domain.CardImage, f.steps[0].Type)
}
