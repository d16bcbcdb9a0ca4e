package telegram

import "fmt"

// User-facing reply texts. Every inbound message ends in exactly one of
// these (or a generated AI reply), so the user is never left hanging.
const (
	ReplyWelcome = "Welcome! Chat with me, or ask for an image. " +
		"If this bot is token-gated, run /connect to link your wallet."

	ReplyThrottled = "Whoa, slow down! You're sending commands too fast. " +
		"Wait a minute and try again."

	ReplyAccessDenied = "This bot is for token holders only. " +
		"Run /connect to verify your wallet."

	ReplyVerifyUsage = "Usage: /verify <wallet-address> <signature>"

	ReplyVerifyNoChallenge = "No active challenge found. It may have expired. " +
		"Run /connect to get a new one."

	ReplyVerifyBadSignature = "That signature doesn't check out. " +
		"Make sure you signed the exact challenge with the right wallet."

	ReplyVerifyNoBalance = "Your wallet doesn't hold the required token, " +
		"so I can't let you in."

	ReplyVerifySuccess = "Wallet verified! You're in. Say hi!"

	ReplyTransientFailure = "Something went wrong on my end. " +
		"Nothing you did wrong, please try again in a bit."

	ReplyImageBusy = "I'm still working on your last image. " +
		"One at a time, please!"

	ReplyImageAck = "Generating your image... hang tight, this can take a minute."

	ReplyImageFailed = "Image generation failed. Try again later!"
)

// ReplyChallenge formats the nonce challenge with signing instructions.
func ReplyChallenge(nonce string) string {
	return fmt.Sprintf(
		"Sign this challenge with your wallet key and send it back:\n\n%s\n\n"+
			"Then run: /verify <wallet-address> <signature>\n"+
			"The challenge expires in a few minutes.",
		nonce,
	)
}
