// Package tower composes the firmware core: the serial pumps, the
// packet protocol thread and the timer-driven event threads.
package tower

// The data path mirrors the reference board. Bytes move from the port
// into the receive ring buffer by a pump that never blocks (the hosted
// stand-in for the UART receive interrupt), the protocol thread blocks
// on the decoder until a frame checks out, the dispatcher handles it,
// and replies go out through the encoder into the transmit ring buffer,
// drained by the transmit pump. Periodic work (clock, analog sampling,
// heartbeat) runs on its own threads, each woken by a counting
// semaphore that only the timer side signals: timers and interrupts
// never execute application logic themselves.
