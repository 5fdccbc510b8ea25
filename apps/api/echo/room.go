package echoapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/realtime"
)

type roomAPI struct {
	conf        *core.Config
	logger      core.Logger
	usrSvc      *user.Service
	chatSvc     *room.Service
	modSvc      *room.ModerationService
	progressSvc *room.ProgressService
	guard       *room.Guard
	hub         *realtime.Hub
}

func registerRoomAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *roomAPI) {
	rg := g.Group("/rooms/:id", jwt)

	rg.GET("/messages", api.messageList)
	rg.POST("/messages", api.messageCreate)
	rg.DELETE("/messages/:msgID", api.messageDestroy)
	rg.POST("/messages/:msgID/reactions", api.reactionCreate)
	rg.DELETE("/messages/:msgID/reactions/:emoji", api.reactionDestroy)
	rg.POST("/messages/:msgID/flags", api.flagCreate)
	rg.GET("/flags", api.flagQuery)
	rg.POST("/typing", api.typingSignal)
	rg.POST("/hand", api.handRaise)
	rg.GET("/online", api.onlineUsers)
	rg.POST("/materials/:materialID/toggle", api.completionToggle)
	rg.POST("/mutes", api.muteCreate)
	rg.DELETE("/mutes/:userID", api.muteDestroy)
	rg.POST("/bans", api.banCreate)
	rg.DELETE("/bans/:userID", api.banDestroy)
	rg.GET("/ws", api.subscribe)

	g.PUT("/flags/:id", api.flagReview, jwt)
}

// Handlers

func (api *roomAPI) messageList(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	page, err := api.chatSvc.ListMessages(ctx.Request().Context(), usr, roomID, ctx.QueryParam("page_token"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *roomAPI) messageCreate(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(room.NewMessage)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	msg, err := api.chatSvc.PostMessage(ctx.Request().Context(), usr, roomID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *roomAPI) messageDestroy(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	if err := api.chatSvc.DeleteMessage(ctx.Request().Context(), usr, roomID, ctx.Param("msgID")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

func (api *roomAPI) reactionCreate(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(reactionRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	if err := api.chatSvc.React(ctx.Request().Context(), usr, roomID, ctx.Param("msgID"), data.Emoji); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomAPI) reactionDestroy(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	if err := api.chatSvc.Unreact(ctx.Request().Context(), usr, roomID, ctx.Param("msgID"), ctx.Param("emoji")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomAPI) flagCreate(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(room.NewFlag)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	f, err := api.chatSvc.FlagMessage(ctx.Request().Context(), usr, roomID, ctx.Param("msgID"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *roomAPI) flagQuery(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	flags, err := api.chatSvc.ListFlags(ctx.Request().Context(), usr, roomID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, flags)
}

type flagReviewRequest struct {
	Status room.FlagStatus `json:"status" validate:"required"`
}

func (api *roomAPI) flagReview(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	flagID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	data := new(flagReviewRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	f, err := api.chatSvc.ReviewFlag(ctx.Request().Context(), usr, flagID, data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *roomAPI) typingSignal(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(room.TypingSignal)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := api.chatSvc.SetTyping(ctx.Request().Context(), usr, roomID, data.IsTyping); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomAPI) handRaise(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	if err := api.chatSvc.RaiseHand(ctx.Request().Context(), usr, roomID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomAPI) onlineUsers(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	online, err := api.chatSvc.OnlineUsers(ctx.Request().Context(), usr, roomID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, online)
}

func (api *roomAPI) completionToggle(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	materialID, err := intParam(ctx, "materialID")
	if err != nil {
		return err
	}
	res, err := api.progressSvc.ToggleCompletion(ctx.Request().Context(), usr, roomID, materialID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *roomAPI) muteCreate(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(room.NewModerationAction)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	m, err := api.modSvc.Mute(ctx.Request().Context(), roomID, data.UserID, usr.ID, data.Until)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *roomAPI) muteDestroy(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	targetID, err := intParam(ctx, "userID")
	if err != nil {
		return err
	}
	if err := api.modSvc.Unmute(ctx.Request().Context(), roomID, targetID, usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomAPI) banCreate(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	data := new(room.NewModerationAction)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	b, err := api.modSvc.Ban(ctx.Request().Context(), roomID, data.UserID, usr.ID, data.Until, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *roomAPI) banDestroy(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}
	targetID, err := intParam(ctx, "userID")
	if err != nil {
		return err
	}
	if err := api.modSvc.Unban(ctx.Request().Context(), roomID, targetID, usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// subscribe upgrades to a websocket and joins the room's channel. Access is
// re-checked here: a revoked principal cannot subscribe, and a ban while
// subscribed evicts the connection via the hub.
func (api *roomAPI) subscribe(ctx echo.Context) error {
	usr, roomID, err := api.principalAndRoom(ctx)
	if err != nil {
		return err
	}

	acc, err := api.guard.CanAccess(ctx.Request().Context(), usr, roomID)
	if err != nil {
		return err
	}
	if !acc.Granted {
		return acc.Reason
	}

	ws, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}

	conn := realtime.NewConnection(usr.ID, ws)
	api.hub.Attach(conn)
	api.hub.Subscribe(roomID, conn)

	// inbound frames are ignored (client actions go through the REST API);
	// the read loop only detects disconnects
	go func() {
		defer api.hub.Detach(conn)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	conn.Wait()
	return nil
}

// helpers

func (api *roomAPI) principalAndRoom(ctx echo.Context) (user.User, int, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, 0, err
	}
	roomID, err := intParam(ctx, "id")
	if err != nil {
		return user.User{}, 0, err
	}
	return usr, roomID, nil
}

func intParam(ctx echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}
