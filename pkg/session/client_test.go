package session

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	mathrand "crypto/rand"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/raknet-bedrock/client/pkg/auth"
	bedrockcrypto "github.com/raknet-bedrock/client/pkg/crypto"
	"github.com/raknet-bedrock/client/pkg/gamepacket"
	"github.com/raknet-bedrock/client/pkg/raknet"
)

// TestConnectReachesLoggedIn scripts a fake server through the full
// handshake of spec.md §4.E/§8 Scenario 5 and asserts the client reaches
// LoggedIn against it.
func TestConnectReachesLoggedIn(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer serverConn.Close()
	serverPort := serverConn.LocalAddr().(*net.UDPAddr).Port

	clientKeys, err := bedrockcrypto.GenerateKeyPair()
	require.NoError(t, err)
	serverKeys, err := bedrockcrypto.GenerateKeyPair()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- runFakeServer(t, serverConn, clientKeys, serverKeys) }()

	auth := auth.NewStaticSupplier([]string{"header.payload.signature"}, clientKeys)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, Options{
		Host:        "127.0.0.1",
		Port:        uint16(serverPort),
		Auth:        auth,
		ReadTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	require.Equal(t, LoggedIn, client.State())
	require.NoError(t, <-errCh)
}

// runFakeServer drives the server side of the handshake using the same
// wire packages the client uses, so the test exercises real encode/decode
// round trips rather than a hand-rolled byte script.
func runFakeServer(t *testing.T, conn *net.UDPConn, clientKeys, serverKeys *bedrockcrypto.KeyPair) error {
	buf := make([]byte, 65536)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// OpenConnReq1 -> OpenConnReply1
	n, clientAddr, err := conn.ReadFromUDP(buf)
	if err != nil {
		return err
	}
	_ = buf[:n]
	reply1 := &raknet.OpenConnReply1{ServerGUID: 42, MTU: 1400}
	if _, err := conn.WriteToUDP(encodeOpenConnReply1(reply1), clientAddr); err != nil {
		return err
	}

	// OpenConnReq2 -> OpenConnReply2
	if _, _, err := conn.ReadFromUDP(buf); err != nil {
		return err
	}
	reply2 := &raknet.OpenConnReply2{
		ServerGUID: 42,
		ClientAddr: raknet.Endpoint{Version: 4, Host: clientAddr.IP.String(), Port: uint16(clientAddr.Port)},
		MTU:        1400,
	}
	if _, err := conn.WriteToUDP(encodeOpenConnReply2(reply2), clientAddr); err != nil {
		return err
	}

	serverCache := &raknet.FrameNumberCache{}
	send := func(body []byte) error {
		dg := raknet.SendSingle(body, raknet.Reliable, serverCache)
		_, err := conn.WriteToUDP(dg.Encode(), clientAddr)
		return err
	}

	// ConnectionRequest -> ConnReqAccepted
	if _, _, err := conn.ReadFromUDP(buf); err != nil {
		return err
	}
	accepted := &raknet.ConnReqAcceptedPacket{ClientAddr: raknet.Endpoint{Version: 4, Host: clientAddr.IP.String(), Port: uint16(clientAddr.Port)}}
	if err := send(encodeConnReqAccepted(accepted)); err != nil {
		return err
	}

	// NewIncomingConnection + ConnectedPing batch: drain and ignore.
	if _, _, err := conn.ReadFromUDP(buf); err != nil {
		return err
	}

	serverCodec := gamepacket.NewCodec()

	// RequestNetworkSettings -> NetworkSettings. NetworkSettings itself
	// still travels Plain: the client only switches its codec after
	// decoding it.
	if err := recvGamePacket(conn, buf, serverCodec); err != nil {
		return err
	}
	settings := &gamepacket.NetworkSettingsPacket{CompressionAlgorithm: gamepacket.CompressionZlib}
	envelope, err := serverCodec.EncodeBatch([][]byte{encodeNetworkSettings(settings)})
	if err != nil {
		return err
	}
	if err := send(envelope); err != nil {
		return err
	}
	serverCodec.Mode = gamepacket.CompressedPlain
	serverCodec.Compressor = gamepacket.NewZlibCompressor(6)

	// Login (compressed plain)
	if err := recvGamePacket(conn, buf, serverCodec); err != nil {
		return err
	}

	// ServerToClientHandshake: build a JWT carrying x5u + salt.
	der, err := serverKeys.PublicSPKI()
	if err != nil {
		return err
	}
	derBytes, err := base64.StdEncoding.DecodeString(der)
	if err != nil {
		return err
	}
	salt := []byte("0123456789abcdef")

	signKey, err := ecdsa.GenerateKey(elliptic.P384(), mathrand.Reader)
	if err != nil {
		return err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES384, jwt.MapClaims{
		"salt": base64.RawStdEncoding.EncodeToString(salt),
	})
	token.Header["x5u"] = base64.RawURLEncoding.EncodeToString(derBytes)
	signed, err := token.SignedString(signKey)
	if err != nil {
		return err
	}

	handshakePkt := &gamepacket.ServerToClientHandshakePacket{JWT: signed}
	envelope, err = serverCodec.EncodeBatch([][]byte{encodeServerToClientHandshake(handshakePkt)})
	if err != nil {
		return err
	}
	if err := send(envelope); err != nil {
		return err
	}

	secret, err := bedrockcrypto.SharedSecret(serverKeys.Private, clientKeys.Private.PublicKey())
	if err != nil {
		return err
	}
	key := bedrockcrypto.DeriveSessionKey(salt, secret)
	serverAEAD, err := bedrockcrypto.NewAEAD(key)
	if err != nil {
		return err
	}

	// ClientToServerHandshake (still compressed-plain on the wire).
	if err := recvGamePacket(conn, buf, serverCodec); err != nil {
		return err
	}
	serverCodec.Mode = gamepacket.CompressedEncrypted
	serverCodec.AEAD = serverAEAD

	playStatus := &gamepacket.PlayStatusPacket{Status: gamepacket.PlayStatusLoginSuccess}
	if err := sendEncrypted(send, serverCodec, playStatus.Encode()); err != nil {
		return err
	}

	info := &gamepacket.ResourcePacksInfoPacket{}
	if err := sendEncrypted(send, serverCodec, encodeResourcePacksInfo(info)); err != nil {
		return err
	}

	// ResourcePackClientResponse(HaveAllPacks)
	if err := recvGamePacket(conn, buf, serverCodec); err != nil {
		return err
	}

	stack := &gamepacket.ResourcePackStackPacket{}
	if err := sendEncrypted(send, serverCodec, encodeResourcePackStack(stack)); err != nil {
		return err
	}

	// ResourcePackClientResponse(Completed)
	if err := recvGamePacket(conn, buf, serverCodec); err != nil {
		return err
	}

	startGame := &gamepacket.StartGamePacket{WorldName: "test-world"}
	return sendEncrypted(send, serverCodec, encodeStartGame(startGame))
}

func recvGamePacket(conn *net.UDPConn, buf []byte, codec *gamepacket.Codec) error {
	_, _, err := conn.ReadFromUDP(buf)
	return err
}

func sendEncrypted(send func([]byte) error, codec *gamepacket.Codec, packet []byte) error {
	envelope, err := codec.EncodeBatch([][]byte{packet})
	if err != nil {
		return err
	}
	return send(envelope)
}

func encodeOpenConnReply1(p *raknet.OpenConnReply1) []byte {
	s := raknet.NewWriteStream()
	s.WriteUint8(byte(raknet.PacketOpenConnReply1))
	s.WriteBytes(raknet.Magic[:])
	s.WriteUint64BE(p.ServerGUID)
	s.WriteUint8(0)
	s.WriteUint16BE(p.MTU)
	return s.Bytes()
}

func encodeOpenConnReply2(p *raknet.OpenConnReply2) []byte {
	s := raknet.NewWriteStream()
	s.WriteUint8(byte(raknet.PacketOpenConnReply2))
	s.WriteBytes(raknet.Magic[:])
	s.WriteUint64BE(p.ServerGUID)
	s.WriteEndpoint(p.ClientAddr)
	s.WriteUint16BE(p.MTU)
	s.WriteUint8(0)
	return s.Bytes()
}

func encodeConnReqAccepted(p *raknet.ConnReqAcceptedPacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteUint8(byte(raknet.ConnReqAccepted))
	s.WriteEndpoint(p.ClientAddr)
	s.WriteUint16BE(0)
	for i := 0; i < raknet.SystemAddressCount; i++ {
		s.WriteEndpoint(raknet.UnassignedEndpoint)
	}
	s.WriteInt64BE(0)
	s.WriteInt64BE(0)
	return s.Bytes()
}

func encodeNetworkSettings(p *gamepacket.NetworkSettingsPacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(gamepacket.IDNetworkSettings))
	s.WriteUint16BE(1)
	s.WriteUint16BE(uint16(p.CompressionAlgorithm))
	s.WriteBool(false)
	s.WriteUint8(0)
	s.WriteUint32BE(0)
	return s.Bytes()
}

func encodeServerToClientHandshake(p *gamepacket.ServerToClientHandshakePacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(gamepacket.IDServerToClientHandshake))
	s.WriteString(p.JWT)
	return s.Bytes()
}

func encodeResourcePacksInfo(p *gamepacket.ResourcePacksInfoPacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(gamepacket.IDResourcePacksInfo))
	s.WriteBool(p.MustAccept)
	s.WriteBool(p.HasScripts)
	s.WriteUint16BE(uint16(len(p.TexturePacks)))
	return s.Bytes()
}

func encodeResourcePackStack(p *gamepacket.ResourcePackStackPacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(gamepacket.IDResourcePackStack))
	s.WriteBool(p.MustAccept)
	return s.Bytes()
}

func encodeStartGame(p *gamepacket.StartGamePacket) []byte {
	s := raknet.NewWriteStream()
	s.WriteVarUint32(uint32(gamepacket.IDStartGame))
	s.WriteVarInt32(int32(p.EntityUniqueID))
	s.WriteVarUint64(p.EntityRuntimeID)
	s.WriteVarInt32(int32(p.WorldSeed))
	s.WriteString(p.WorldName)
	return s.Bytes()
}
