// Package cmds implements the tower command set: the handlers behind
// each protocol opcode, backed by the non-volatile store for the
// settings that survive a power cycle.
package cmds
