// Package hostenv provides Env, an explicit snapshot of the process environment.
//
// Stages never read or mutate os.Environ directly. They receive an Env, look
// commands up through Env.LookPath, and return an updated Env when they change
// something (a PATH entry folded in by the ephemeral tool supplier, agent
// socket exports from the credential loader). Env values are immutable: every
// update returns a copy, so a stage under test sees exactly the environment
// the test built for it.
package hostenv
