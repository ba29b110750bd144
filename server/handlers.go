package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/chain"
	"github.com/bitfsorg/doginals-go/envelope"
	"github.com/bitfsorg/doginals-go/inscribe"
	"github.com/bitfsorg/doginals-go/journal"
	"github.com/bitfsorg/doginals-go/tx"
)

const defaultJobListLimit = 50

type priceReq struct {
	Fiat float64 `form:"fiat" binding:"omitempty,gt=0"`
}

// PriceRsp is the body of GET /v1/price.
type PriceRsp struct {
	Pair         string  `json:"pair"`
	Price        float64 `json:"price"`
	Source       string  `json:"source"`
	Fiat         float64 `json:"fiat"`
	Native       float64 `json:"native"`
	Koinu        uint64  `json:"koinu"`
	Display      string  `json:"display"`
	ShortDisplay string  `json:"short_display"`
	At           string  `json:"at"`
}

func (s *Server) price(ctx *gin.Context) {
	var req priceReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		failResponse(ctx, http.StatusBadRequest, err.Error(), nil)
		return
	}
	fiat := req.Fiat
	if fiat == 0 {
		fiat = s.svc.Quoter().Config().TargetFiat
	}

	q := s.svc.Quoter().QuoteReward(ctx.Request.Context(), fiat)
	successResponse(ctx, PriceRsp{
		Pair:         q.Pair,
		Price:        q.Price,
		Source:       string(q.Origin),
		Fiat:         q.Fiat,
		Native:       q.Native,
		Koinu:        q.Koinu,
		Display:      q.Display(),
		ShortDisplay: q.ShortDisplay(),
		At:           q.At.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) priceStatus(ctx *gin.Context) {
	successResponse(ctx, s.svc.Quoter().CacheStatus())
}

func (s *Server) refreshPrice(ctx *gin.Context) {
	price, origin := s.svc.Quoter().Refresh(ctx.Request.Context())

	// Cached /v1/price responses are keyed by path and query; drop the
	// default one so the next read reflects the new price.
	key := priceCacheKey(&http.Request{URL: &url.URL{Path: "/v1/price"}})
	if err := s.priceCache.Delete(key); err != nil {
		s.logger.Debug("price cache delete", zap.Error(err))
	}

	successResponse(ctx, gin.H{
		"price":  price,
		"source": string(origin),
		"status": s.svc.Quoter().CacheStatus(),
	})
}

func (s *Server) address(ctx *gin.Context) {
	successResponse(ctx, gin.H{"address": s.svc.FundingAddress()})
}

type listReq struct {
	Limit int `form:"limit" binding:"omitempty,gte=0,lte=1000"`
}

func (s *Server) listInscriptions(ctx *gin.Context) {
	var req listReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		failResponse(ctx, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultJobListLimit
	}
	jobs, err := s.svc.Jobs(req.Limit)
	if err != nil {
		failResponse(ctx, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if jobs == nil {
		jobs = []*journal.Job{}
	}
	successResponse(ctx, jobs)
}

func (s *Server) getInscription(ctx *gin.Context) {
	job, err := s.svc.Job(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, journal.ErrJobNotFound) {
			failResponse(ctx, http.StatusNotFound, "inscription job not found", nil)
			return
		}
		failResponse(ctx, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	successResponse(ctx, job)
}

type inscribeForm struct {
	Recipient   string  `form:"recipient" binding:"required"`
	ContentType string  `form:"content_type"`
	RewardFiat  float64 `form:"reward_fiat" binding:"omitempty,gt=0"`
}

func (s *Server) createInscription(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, s.opts.MaxUploadBytes+1<<20)

	var form inscribeForm
	if err := ctx.ShouldBind(&form); err != nil {
		failResponse(ctx, http.StatusBadRequest, err.Error(), nil)
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		failResponse(ctx, http.StatusBadRequest, "missing file: "+err.Error(), nil)
		return
	}
	if fh.Size > s.opts.MaxUploadBytes {
		failResponse(ctx, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is %d bytes, maximum is %d", fh.Size, s.opts.MaxUploadBytes), nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		failResponse(ctx, http.StatusBadRequest, err.Error(), nil)
		return
	}
	payload, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		failResponse(ctx, http.StatusBadRequest, err.Error(), nil)
		return
	}

	contentType := form.ContentType
	if contentType == "" {
		contentType = uploadContentType(fh.Header.Get("Content-Type"), payload)
	}

	res, err := s.svc.Inscribe(ctx.Request.Context(), inscribe.Request{
		Payload:     payload,
		ContentType: contentType,
		Recipient:   form.Recipient,
		RewardFiat:  form.RewardFiat,
	})
	if err != nil {
		failResponse(ctx, inscribeStatus(err), err.Error(), res)
		return
	}
	successResponse(ctx, res)
}

func (s *Server) resumeInscription(ctx *gin.Context) {
	res, err := s.svc.Resume(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		failResponse(ctx, inscribeStatus(err), err.Error(), res)
		return
	}
	successResponse(ctx, res)
}

// uploadContentType prefers the part's declared type and sniffs the bytes
// when the client sent none or a generic one.
func uploadContentType(declared string, payload []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	ct := http.DetectContentType(payload)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.TrimSpace(ct)
}

func inscribeStatus(err error) int {
	switch {
	case errors.Is(err, envelope.ErrValidation), errors.Is(err, envelope.ErrEncoding),
		errors.Is(err, inscribe.ErrInvalidRecipient), errors.Is(err, chain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, journal.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrJobClosed), errors.Is(err, journal.ErrNotResumable):
		return http.StatusConflict
	case errors.Is(err, tx.ErrInsufficientFunds), errors.Is(err, inscribe.ErrFunding),
		errors.Is(err, inscribe.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, chain.ErrBroadcast):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
