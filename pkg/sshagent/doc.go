// Package sshagent prepares an ssh-agent for the repository clone.
//
// An agent advertised through SSH_AUTH_SOCK is reused when its socket accepts
// a connection and answers a key listing. Otherwise a new agent is started
// with "ssh-agent -s" and its exports are folded into the run environment.
// Each default key file that exists is parsed and added to the agent.
// Encrypted keys ask for their passphrase. Keys whose public half is already
// in the agent are not loaded again. Load failures are counted, never fatal.
package sshagent
