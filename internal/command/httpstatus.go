package command

import "net/http"

// HTTPStatus maps a Kind to the status code the REST collaborator
// should return, exactly per spec.md §7's table.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindMuted, KindBanned, KindMissingHubPermission, KindMissingChannelPermission:
		return http.StatusForbidden
	case KindHubNotFound, KindChannelNotFound, KindNotInHub, KindMemberNotFound, KindMessageNotFound, KindGroupNotFound, KindPublicKeyNotFound:
		return http.StatusNotFound
	case KindInvalidName, KindTooBig, KindInvalidText, KindInvalidTime:
		return http.StatusBadRequest
	case KindAlreadyTyping, KindNotTyping:
		return http.StatusConflict
	case KindInvalidMessage, KindBadSignature:
		return http.StatusBadRequest
	case KindWsNotAuthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
