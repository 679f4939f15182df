package ransac

import(
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// DefaultMaxRetries bounds how many times an operator can send the
// search back for more trials.
const DefaultMaxRetries = 3

// A Decision is what an Operator makes of a Result. If it doesn't
// accept, Config is used for the next round.
type Decision struct {
	Accept bool
	Config Config
}

// An Operator reviews each round's result, and decides whether to keep
// searching.
type Operator interface {
	Review(ctx context.Context, r *Result) (Decision, error)
}

// AutoAccept takes the first result it is shown.
type AutoAccept struct{}

func (AutoAccept)Review(ctx context.Context, r *Result) (Decision, error) {
	return Decision{Accept: true, Config: r.Config}, nil
}

// ConsoleOperator asks a human, over a pair of streams (typically
// stdin/stdout). Answering anything other than N accepts.
type ConsoleOperator struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleOperator(in io.Reader, out io.Writer) *ConsoleOperator {
	return &ConsoleOperator{in: bufio.NewReader(in), out: out}
}

func (c *ConsoleOperator)Review(ctx context.Context, r *Result) (Decision, error) {
	fmt.Fprintf(c.out, "Current best number of matches: %d (of %d)\n", r.InlierCount(), len(r.Src))
	answer, err := c.ask("Are you satisfied? [Y/N]")
	if err != nil {
		return Decision{}, err
	}
	if a := strings.ToUpper(answer); a != "N" && a != "NO" {
		return Decision{Accept: true, Config: r.Config}, nil
	}

	next := r.Config
	for {
		answer, err := c.ask("How many more iterations do you want to try?")
		if err != nil {
			return Decision{}, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n > 0 {
			next.MaxIterations = n
			break
		}
		fmt.Fprintf(c.out, "'%s' isn't a positive whole number\n", answer)
	}

	for {
		answer, err := c.ask("What threshold do you want to set?")
		if err != nil {
			return Decision{}, err
		}
		if f, err := strconv.ParseFloat(answer, 64); err == nil && f > 0 {
			next.InlierThreshold = f
			break
		}
		fmt.Fprintf(c.out, "'%s' isn't a positive number\n", answer)
	}

	fmt.Fprintf(c.out, "Going back...\n")
	return Decision{Config: next}, nil
}

func (c *ConsoleOperator)ask(prompt string) (string, error) {
	fmt.Fprintf(c.out, "%s\n", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "reading operator input")
	}
	return strings.TrimSpace(line), nil
}

// Refine runs an initial estimate, then lets the operator send it back
// for more rounds, at most maxRetries times. Running out of retries is
// not an error; the last result is returned.
func Refine(ctx context.Context, est *Estimator, src, dst []r2.Point, cfg Config, op Operator, maxRetries int, logger golog.Logger) (*Result, error) {
	res, err := est.Estimate(ctx, src, dst, cfg)
	if err != nil {
		return nil, err
	}

	for retry:=0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		decision, err := op.Review(ctx, res)
		if err != nil {
			return res, errors.Wrap(err, "operator review")
		}
		if decision.Accept {
			return res, nil
		}
		if retry >= maxRetries {
			logger.Infow("operator retries exhausted, keeping the last result", "retries", maxRetries, "inliers", res.InlierCount())
			return res, nil
		}

		logger.Infow("running more ransac trials",
			"iterations", decision.Config.MaxIterations,
			"threshold", decision.Config.InlierThreshold)
		if res, err = est.Continue(ctx, res, decision.Config); err != nil {
			return nil, err
		}
	}
}
