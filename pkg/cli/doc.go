/*
Package cli provides command-line interface utilities for Veil.

The cli package includes typed command errors and signal handling
helpers used by the veil command.

Errors:

Commands wrap failures in typed errors so the root command can report
them consistently:

	if err := config.Initialize(path); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	if err := doWork(); err != nil {
		return cli.NewCommandError("run", err)
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sig := <-cli.WaitForShutdown()
	// tear down subsystems, then exit
*/
package cli
