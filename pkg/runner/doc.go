/*
Package runner drives one conversational turn through a compiled graph and
reduces the emitted snapshots to the assistant's answer.

# Usage

	r := runner.New(compiled, runner.WithLogger(logger))

	resp, err := r.Run(ctx, "thread-1", "what is my username?")
	if err != nil {
		return err
	}
	if resp.Response != nil {
		fmt.Println(*resp.Response)
	}
*/
package runner
