// Package remote implements the client commands of the keypad controller.
//
// Press sends keys to a running controller, Status prints its snapshot once
// or keeps polling it, and Stop asks it to stop at the next checkpoint.
package remote
