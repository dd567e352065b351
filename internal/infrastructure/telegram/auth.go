package telegram

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// CodeProvider defines interface for providing authentication codes
type CodeProvider interface {
	GetCode(ctx context.Context) (string, error)
}

// PasswordProvider defines interface for providing 2FA passwords
type PasswordProvider interface {
	GetPassword(ctx context.Context) (string, error)
}

// ConsoleCodeProvider implements CodeProvider using stdin
type ConsoleCodeProvider struct{}

// GetCode prompts for the authentication code via console with timeout
func (p *ConsoleCodeProvider) GetCode(ctx context.Context) (string, error) {
	return promptLine(ctx, "Enter authentication code: ")
}

// ConsolePasswordProvider implements PasswordProvider using stdin
type ConsolePasswordProvider struct{}

// GetPassword prompts for the 2FA password via console with timeout
func (p *ConsolePasswordProvider) GetPassword(ctx context.Context) (string, error) {
	return promptLine(ctx, "Enter 2FA password: ")
}

func promptLine(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)

	lineChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			errChan <- fmt.Errorf("failed to read input: %w", err)
			return
		}
		lineChan <- strings.TrimSpace(line)
	}()

	select {
	case line := <-lineChan:
		return line, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("input cancelled: %w", ctx.Err())
	case <-time.After(2 * time.Minute):
		return "", fmt.Errorf("input timeout")
	}
}

// authenticateWithRetry performs authentication honoring FLOOD_WAIT and
// applying exponential backoff for transient failures
func (g *Gateway) authenticateWithRetry(ctx context.Context, maxRetries int) error {
	var lastErr error
	baseDelay := 1 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := g.performAuthentication(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if isNonRetryableAuthError(err) {
			g.logger.Error().Err(err).Msg("non-retryable authentication error")
			return fmt.Errorf("authentication failed with non-retryable error: %w", err)
		}

		if wait, ok := tgerr.AsFloodWait(err); ok {
			g.metrics.RecordFloodWait()
			g.logger.Warn().
				Int("attempt", attempt+1).
				Dur("wait_duration", wait).
				Msg("flood wait detected, waiting before retry")

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if tgerr.Is(err, "SESSION_REVOKED") {
			g.logger.Error().Msg("session has been revoked, re-authenticating from scratch")
			if err := g.sessionStorage.DeleteSession(); err != nil {
				g.logger.Warn().Err(err).Msg("failed to delete revoked session")
			}
			continue
		}

		if tgerr.Is(err, "PHONE_CODE_INVALID") {
			g.logger.Error().Msg("invalid phone code provided")
			if attempt < maxRetries-1 {
				g.logger.Info().Msg("please try entering the code again")
				continue
			}
			return fmt.Errorf("authentication failed after %d attempts: invalid phone code", maxRetries)
		}

		delay := baseDelay * (1 << attempt)
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		g.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("retry_delay", delay).
			Msg("authentication failed, retrying")

		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("authentication failed after %d attempts: %w", maxRetries, lastErr)
}

// isNonRetryableAuthError checks for errors that retrying cannot fix
func isNonRetryableAuthError(err error) bool {
	return tgerr.Is(err,
		"PHONE_NUMBER_BANNED",
		"PHONE_NUMBER_INVALID",
		"API_ID_INVALID",
		"API_ID_PUBLISHED_FLOOD",
		"AUTH_TOKEN_INVALID",
		"PASSWORD_HASH_INVALID",
		"PHONE_NUMBER_OCCUPIED",
		"PHONE_PASSWORD_PROTECTED",
	)
}

// performAuthentication performs a single authentication attempt
func (g *Gateway) performAuthentication(ctx context.Context) error {
	codeProvider := &ConsoleCodeProvider{}
	passwordProvider := &ConsolePasswordProvider{}

	flow := auth.NewFlow(
		auth.Constant(
			g.phone,
			"",
			auth.CodeAuthenticatorFunc(func(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
				g.logger.Info().Msg("authentication code has been sent")
				return codeProvider.GetCode(ctx)
			}),
		),
		auth.SendCodeOptions{},
	)

	err := g.client.Auth().IfNecessary(ctx, flow)
	if err != nil {
		if tgerr.Is(err, "SESSION_PASSWORD_NEEDED") {
			g.logger.Info().Msg("2FA is enabled, requesting password")
			password, err := passwordProvider.GetPassword(ctx)
			if err != nil {
				return fmt.Errorf("failed to get 2FA password: %w", err)
			}

			_, err = g.client.Auth().Password(ctx, password)
			if err != nil {
				g.logger.Error().Err(err).Msg("2FA authentication failed")
				return fmt.Errorf("2FA authentication failed: %w", err)
			}

			g.logger.Info().Msg("2FA authentication successful")
			return nil
		}
		return err
	}

	g.logger.Info().Msg("authentication successful")
	return nil
}
