package service

import (
	"context"
	"encoding/json"
	"time"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/pkg/events"
	"tara-tutor-be/pkg/feedback"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const FeedbackTopic = "tutor.feedback"

type IFeedbackService interface {
	Submit(ctx context.Context, req *dto.FeedbackRequest) error
	Consume(ctx context.Context) error
}

type feedbackService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	sheet     feedback.Logger
	cfg       config.FeedbackConfig
	tutor     ITutorService
	publisher EventPublisher
	logger    logger.ILogger
}

func NewFeedbackService(
	pubSub *gochannel.GoChannel,
	sheet feedback.Logger,
	cfg config.FeedbackConfig,
	tutorService ITutorService,
	publisher EventPublisher,
	log logger.ILogger,
) IFeedbackService {
	return &feedbackService{
		pubSub:    pubSub,
		topicName: FeedbackTopic,
		sheet:     sheet,
		cfg:       cfg,
		tutor:     tutorService,
		publisher: publisher,
		logger:    log,
	}
}

// Submit queues the rating with the exchange it refers to. Delivery happens in Consume.
func (fs *feedbackService) Submit(ctx context.Context, req *dto.FeedbackRequest) error {
	sessionId := sessionOrDefault(req.SessionId)
	question, answer := fs.tutor.LastExchange(sessionId)

	payload, err := json.Marshal(dto.FeedbackMessage{
		SessionId:    sessionId,
		Rating:       req.Rating,
		Comment:      req.Comment,
		LastQuestion: question,
		LastAnswer:   answer,
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := fs.pubSub.Publish(fs.topicName, message.NewMessage(uuid.NewString(), payload)); err != nil {
		return err
	}

	if fs.publisher != nil {
		ev := events.New(events.TypeFeedbackReceived, sessionId, map[string]interface{}{"rating": req.Rating})
		if err := fs.publisher.Publish(ctx, ev); err != nil {
			fs.logger.Warn("FeedbackService", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func (fs *feedbackService) Consume(ctx context.Context) error {
	messages, err := fs.pubSub.Subscribe(ctx, fs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			fs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Sheet errors are logged and the row is dropped.
func (fs *feedbackService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.FeedbackMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		fs.logger.Error("FeedbackService", "Failed to unmarshal feedback", map[string]interface{}{"error": err.Error()})
		return
	}

	row := []interface{}{
		payload.SubmittedAt.Format(time.RFC3339),
		payload.SessionId,
		payload.Rating,
		payload.Comment,
		payload.LastQuestion,
		payload.LastAnswer,
	}

	appendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := fs.sheet.Append(appendCtx, fs.cfg.SpreadsheetID, fs.cfg.Range, fs.cfg.ValueInputOption, [][]interface{}{row}); err != nil {
		fs.logger.Error("FeedbackService", "Failed to append feedback row", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		return
	}

	fs.logger.Info("FeedbackService", "Feedback recorded", map[string]interface{}{
		"session_id": payload.SessionId,
		"rating":     payload.Rating,
	})
}
